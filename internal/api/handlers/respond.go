package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

// Messages shown to API clients
const (
	msgInternal        = "Erro interno do servidor. Tente novamente."
	msgNoOperations    = "Nenhuma operação válida encontrada no CSV. Verifique o formato do arquivo."
	msgMissingCSV      = "Conteúdo CSV não informado"
	msgCSVOnly         = "Apenas arquivos CSV são aceitos"
	msgInvalidEncoding = "Arquivo CSV com codificação inválida. Use UTF-8."
	msgInvalidBody     = "Corpo da requisição inválido"
	msgInvalidAccount  = "Tipo de conta inválido. Use 'master_funded' ou 'instant_funding'"
)

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores the request ID set by the API middleware
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID or ""
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}

// RespondError is used by the API middleware for the same error shape
func RespondError(w http.ResponseWriter, status int, message string) {
	respondError(w, status, message)
}
