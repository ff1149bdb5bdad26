package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/scheduler"
)

func TestAccountTypeValue(t *testing.T) {
	tests := []struct {
		raw  string
		want accountTypeValue
	}{
		{`"MASTER_FUNDED"`, "MASTER_FUNDED"},
		{`"instant_funding"`, "instant_funding"},
		{`1`, "1"},
		{`2`, "2"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var got accountTypeValue
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(context.Background(), "abc")))
}

type stubPinger struct {
	enabled bool
	err     error
}

func (s stubPinger) Enabled() bool                { return s.enabled }
func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealth_Ready(t *testing.T) {
	store := calendar.NewStaticStore(calendar.Default())

	tests := []struct {
		name   string
		redis  Pinger
		store  *calendar.Store
		status int
		reason string
	}{
		{"no redis", nil, store, http.StatusOK, ""},
		{"redis up", stubPinger{enabled: true}, store, http.StatusOK, ""},
		{"redis down", stubPinger{enabled: true, err: errors.New("refused")}, store, http.StatusServiceUnavailable, "redis unavailable"},
		{"redis disabled", stubPinger{enabled: false, err: errors.New("unused")}, store, http.StatusOK, ""},
		{"no calendar", nil, nil, http.StatusServiceUnavailable, "calendar not loaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.redis, tt.store, false, nil)

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.reason, body["reason"])
		})
	}
}

func TestHealth_ReportsServices(t *testing.T) {
	h := NewHealthHandler(stubPinger{enabled: true, err: errors.New("refused")}, nil, true, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "error", body.Services["redis"])
	assert.Equal(t, "enabled", body.Services["kafka"])
	assert.Equal(t, "disabled", body.Services["calendar"])
}

type stubJobs map[string]scheduler.JobStats

func (s stubJobs) GetJobStats() map[string]scheduler.JobStats { return s }

func TestHealth_ReportsJobStats(t *testing.T) {
	h := NewHealthHandler(nil, nil, false, nil).WithJobs(stubJobs{
		"calendar_reload": {JobName: "calendar_reload", Schedule: "0 */15 * * * *", TotalRuns: 4, SuccessCount: 3, FailureCount: 1, SuccessRate: 0.75},
	})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Jobs map[string]scheduler.JobStats `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Jobs, "calendar_reload")
	assert.Equal(t, 4, body.Jobs["calendar_reload"].TotalRuns)
	assert.InDelta(t, 0.75, body.Jobs["calendar_reload"].SuccessRate, 1e-9)

	// without a scheduler the key is omitted
	rec = httptest.NewRecorder()
	NewHealthHandler(nil, nil, false, nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotContains(t, rec.Body.String(), `"jobs"`)
}
