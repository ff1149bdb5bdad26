package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/events"
	"github.com/wonny/propdesk/internal/report"
)

type recordingPublisher struct {
	events []events.AnalysisCompleted
	err    error
}

func (p *recordingPublisher) PublishAnalysisCompleted(_ context.Context, ev events.AnalysisCompleted) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// memCache stores JSON like the redis cache does
type memCache struct {
	items map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = data
	return nil
}

func (c *memCache) keys(prefix string) []string {
	var out []string
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

const sampleCSV = "Ativo\tAbertura\tFechamento\tTempo\tQtd Compra\tQtd Venda\tLado\tPreço Compra\tPreço Venda\tPreço Mercado\tMédio\tRes. Intervalo\tRes. Intervalo (%)\tRes. Operação\tRes. Operação (%)\tTET\tTotal\n" +
	"WINJ24\t02/01/2024 13:00\t02/01/2024 13:30\t30min\t1\t1\tC\t100\t110\t110\tNão\t300\t0\t300\t0\t-\t300\n" +
	"WINJ24\t03/01/2024 13:00\t03/01/2024 13:30\t30min\t1\t1\tC\t100\t110\t110\tNão\t300\t0\t300\t0\t-\t300\n" +
	"WINJ24\t04/01/2024 13:00\t04/01/2024 13:30\t30min\t1\t1\tV\t100\t90\t90\tNão\t-100\t0\t-100\t0\t-\t-100\n"

func account() contracts.AccountConfig {
	return contracts.AccountConfig{
		AccountType:    contracts.AccountInstantFunding,
		CurrentBalance: decimal.NewFromInt(50000),
	}
}

func newService(pub events.Publisher) *Service {
	engine := report.NewEngine(calendar.NewStaticStore(calendar.Default()), nil, nil, nil)
	svc := NewService(engine, nil, 0, nil, pub, nil)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_Analyze(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)

	rep, err := svc.Analyze(context.Background(), Request{CSV: sampleCSV, Account: account(), RequestID: "req-42"})
	require.NoError(t, err)

	assert.Equal(t, "req-42", rep.RequestID)
	assert.False(t, rep.Cached)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), rep.GeneratedAt)
	assert.Equal(t, 3, rep.TotalOperations)
	assert.False(t, rep.Approved)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "req-42", pub.events[0].RequestID)
	assert.Equal(t, rep.CriticalCount(), pub.events[0].CriticalViolations)
	assert.Len(t, pub.events[0].Fingerprint, 64)
}

func TestService_AnalyzeErrorIsNotPublished(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)

	_, err := svc.Analyze(context.Background(), Request{CSV: "nothing here", Account: account()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrNoOperations))
	assert.Empty(t, pub.events)
}

func TestService_PublishFailureDoesNotFail(t *testing.T) {
	svc := newService(&recordingPublisher{err: errors.New("broker down")})

	rep, err := svc.Analyze(context.Background(), Request{CSV: sampleCSV, Account: account()})
	require.NoError(t, err)
	assert.NotNil(t, rep)
}

func TestService_Daily(t *testing.T) {
	svc := newService(nil)

	view, err := svc.Daily(context.Background(), Request{CSV: sampleCSV, Account: account()},
		contracts.DailyFilter{SortBy: "netResult", SortOrder: "asc"})
	require.NoError(t, err)

	require.Len(t, view.Days, 3)
	assert.Equal(t, "2024-01-04", view.Days[0].Date)
	assert.Equal(t, "all", view.Filter.Status)
	assert.Equal(t, 3, view.Summary.TotalDays)
	assert.True(t, decimal.NewFromInt(500).Equal(view.Summary.NetTotal))
}

func TestService_DailyViewIsCachedPerFilter(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)
	cache := newMemCache()
	svc.cache = cache

	req := Request{CSV: sampleCSV, Account: account(), RequestID: "req-1"}
	filter := contracts.DailyFilter{SortBy: "netResult", SortOrder: "asc"}

	first, err := svc.Daily(context.Background(), req, filter)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, cache.keys("daily:"), 1)
	assert.Len(t, cache.keys("analysis:"), 1)

	req.RequestID = "req-2"
	second, err := svc.Daily(context.Background(), req, filter)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "req-2", second.RequestID)
	assert.Equal(t, first.Filter, second.Filter)
	require.Len(t, second.Days, 3)
	assert.Equal(t, "2024-01-04", second.Days[0].Date)
	assert.True(t, first.Summary.NetTotal.Equal(second.Summary.NetTotal))

	// a different filter is a different view over the cached analysis
	third, err := svc.Daily(context.Background(), req, contracts.DailyFilter{Status: "approved"})
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Len(t, cache.keys("daily:"), 2)

	assert.Len(t, pub.events, 1)
}

func TestService_DailyRejectsFilterBeforeAnalyzing(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)

	_, err := svc.Daily(context.Background(), Request{CSV: sampleCSV, Account: account()},
		contracts.DailyFilter{Status: "pending"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInvalidConfiguration))
	assert.Empty(t, pub.events)
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint(sampleCSV, account(), "embedded@1")
	assert.Equal(t, base, Fingerprint(sampleCSV, account(), "embedded@1"))

	withOffset := account()
	withOffset.UTCOffset = "-03"
	assert.Equal(t, base, Fingerprint(sampleCSV, withOffset, "embedded@1"), "default offset is explicit")

	other := account()
	other.CurrentBalance = decimal.NewFromInt(100000)
	assert.NotEqual(t, base, Fingerprint(sampleCSV, other, "embedded@1"))
	assert.NotEqual(t, base, Fingerprint(strings.ToUpper(sampleCSV), account(), "embedded@1"))
	assert.NotEqual(t, base, Fingerprint(sampleCSV, account(), "embedded@2"))
}
