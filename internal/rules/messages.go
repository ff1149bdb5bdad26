package rules

import (
	"fmt"

	"github.com/wonny/propdesk/internal/contracts"
)

// =============================================================================
// Recommendations and next steps
// =============================================================================

const successMessage = "Parabéns! Suas operações estão em conformidade com as regras da YLOS"

var recommendationByCode = map[contracts.ViolationCode]string{
	contracts.CodeMinTradingDays:   "Aumente o número de dias operados para atender ao mínimo exigido",
	contracts.CodeMinWinningDays:   "Foque em estratégias que gerem mais dias vencedores consistentes",
	contracts.CodeConsistency:      "Distribua melhor os lucros ao longo dos dias para atender a regra de consistência",
	contracts.CodeDailyProfitCap:   "Limite o lucro diário ao teto permitido, encerrando as operações ao atingi-lo",
	contracts.CodeExcessiveAverage: "Reduza o uso de preço médio; prefira entradas planejadas com stop definido",
	contracts.CodeOvernight:        "Feche todas as posições antes do final do dia de trading",
	contracts.CodeMarketOpening:    "Evite manter posições entre 09:15 e 09:45 (horário de Nova York)",
	contracts.CodeNewsExposure:     "Evite manter posições abertas durante eventos noticiosos de alto impacto",
}

var nextStepByCode = map[contracts.ViolationCode]string{
	contracts.CodeMinTradingDays: "Continue operando até completar o número mínimo de dias",
	contracts.CodeMinWinningDays: "Acumule mais dias vencedores antes de uma nova solicitação",
	contracts.CodeConsistency:    "Aguarde novos dias lucrativos para diluir a participação do melhor dia",
	contracts.CodeDailyProfitCap: "Respeite o limite diário de lucro nas próximas sessões",
	contracts.CodeOvernight:      "Encerre as posições no mesmo dia em que forem abertas",
	contracts.CodeMarketOpening:  "Não mantenha posições durante a abertura de Nova York",
}

// Recommendations lists one summary line followed by one guidance line per
// violated code, CRITICAL codes first. Without violations only the success
// message is returned.
func Recommendations(violations []contracts.Violation) []string {
	if len(violations) == 0 {
		return []string{successMessage}
	}

	critical, warning := 0, 0
	for _, v := range violations {
		if v.IsCritical() {
			critical++
		} else {
			warning++
		}
	}

	out := []string{fmt.Sprintf("Foram encontradas %d violações críticas e %d alertas", critical, warning)}
	out = append(out, guidance(violations, contracts.SeverityCritical)...)
	for _, sev := range []contracts.Severity{contracts.SeverityWarning, contracts.SeverityInfo} {
		out = append(out, guidance(violations, sev)...)
	}
	return out
}

// NextSteps depends only on the verdict and the CRITICAL codes
func NextSteps(violations []contracts.Violation) []string {
	critical := 0
	for _, v := range violations {
		if v.IsCritical() {
			critical++
		}
	}

	if critical == 0 {
		return []string{
			"Seu saque está aprovado conforme as regras analisadas",
			"Proceda com a solicitação de saque através do painel YLOS",
			"Continue mantendo a disciplina operacional para futuros saques",
		}
	}

	steps := []string{
		"Seu saque NÃO está aprovado devido às violações encontradas",
		"Revise as violações críticas listadas acima",
	}
	seen := make(map[contracts.ViolationCode]struct{})
	for _, v := range violations {
		if !v.IsCritical() {
			continue
		}
		if _, dup := seen[v.Code]; dup {
			continue
		}
		seen[v.Code] = struct{}{}
		if step, ok := nextStepByCode[v.Code]; ok {
			steps = append(steps, step)
		}
	}
	steps = append(steps,
		"Ajuste sua estratégia para atender aos requisitos",
		fmt.Sprintf("Corrija as %d violações críticas antes de solicitar o saque", critical),
	)
	return steps
}

func guidance(violations []contracts.Violation, severity contracts.Severity) []string {
	var out []string
	seen := make(map[contracts.ViolationCode]struct{})
	for _, v := range violations {
		if v.Severity != severity {
			continue
		}
		if _, dup := seen[v.Code]; dup {
			continue
		}
		seen[v.Code] = struct{}{}
		if text, ok := recommendationByCode[v.Code]; ok {
			out = append(out, text)
		}
	}
	return out
}
