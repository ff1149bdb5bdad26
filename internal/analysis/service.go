package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/daily"
	"github.com/wonny/propdesk/internal/events"
	"github.com/wonny/propdesk/internal/report"
	"github.com/wonny/propdesk/pkg/logger"
	"github.com/wonny/propdesk/pkg/redis"
	"github.com/wonny/propdesk/pkg/trace"
)

// =============================================================================
// Analysis service
// ⭐ SSOT: 캐시, 트레이싱, 이벤트 발행은 순수 엔진 바깥에서만
// =============================================================================

// Request is one analysis call
type Request struct {
	CSV       string
	Account   contracts.AccountConfig
	RequestID string
}

// DailyView is the filtered day list returned to the dashboard
type DailyView struct {
	Days      []contracts.DayAnalysis `json:"days"`
	Summary   contracts.DailySummary  `json:"summary"`
	Filter    contracts.DailyFilter   `json:"filter"`
	RequestID string                  `json:"request_id,omitempty"`
	Cached    bool                    `json:"cached"`
}

// resultCache is the subset of *redis.Cache the service needs
type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service wraps the engine with caching, tracing and event publishing
type Service struct {
	engine    *report.Engine
	cache     resultCache
	ttl       time.Duration
	tracer    *trace.Tracer
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService wires the service. Nil collaborators are replaced by no-ops.
func NewService(engine *report.Engine, cache *redis.Cache, ttl time.Duration, tracer *trace.Tracer, publisher events.Publisher, log *logger.Logger) *Service {
	if cache == nil {
		cache = redis.NewCache(nil, "propdesk")
	}
	if ttl <= 0 {
		ttl = redis.TTLMedium
	}
	if tracer == nil {
		tracer = trace.Disabled()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		engine:    engine,
		cache:     cache,
		ttl:       ttl,
		tracer:    tracer,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Engine exposes the underlying engine (rules and calendar endpoints)
func (s *Service) Engine() *report.Engine {
	return s.engine
}

// Analyze returns the report for req, from cache when the same input was
// analyzed against the same calendar snapshot.
func (s *Service) Analyze(ctx context.Context, req Request) (*contracts.Report, error) {
	ctx, span := s.tracer.StartSpan(ctx, "analysis.analyze")
	defer span.End()

	log := s.logger.WithField("request_id", req.RequestID)
	if traceID, spanID, ok := trace.TraceFields(ctx); ok {
		log = log.WithFields(map[string]interface{}{"trace_id": traceID, "span_id": spanID})
	}
	fingerprint := Fingerprint(req.CSV, req.Account, s.engine.CalendarVersion())
	span.SetAttributes(
		attribute.String("analysis.account_type", string(req.Account.AccountType)),
		attribute.String("analysis.fingerprint", fingerprint),
	)

	var cached contracts.AnalysisResult
	found, err := s.cache.Get(ctx, redis.AnalysisKey(fingerprint), &cached)
	if err != nil {
		log.WithError(err).Warn("Analysis cache read failed")
	}
	if found {
		span.SetAttributes(attribute.Bool("analysis.cached", true))
		log.Debug("Analysis served from cache")
		return s.envelope(&cached, req.RequestID, true), nil
	}

	_, evalSpan := s.tracer.StartSpan(ctx, "analysis.engine")
	result, err := s.engine.Analyze(req.CSV, req.Account)
	evalSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.cache.Set(ctx, redis.AnalysisKey(fingerprint), result, s.ttl); err != nil {
		log.WithError(err).Warn("Analysis cache write failed")
	}

	rep := s.envelope(result, req.RequestID, false)
	if err := s.publisher.PublishAnalysisCompleted(ctx, events.NewAnalysisCompleted(fingerprint, rep)); err != nil {
		log.WithError(err).Warn("Failed to publish analysis event")
	}

	span.SetAttributes(
		attribute.Bool("analysis.cached", false),
		attribute.Bool("analysis.approved", result.Approved),
		attribute.Int("analysis.violations", len(result.Violations)),
	)
	return rep, nil
}

// Daily analyzes req and returns the filtered, sorted day list. Views are
// cached per input fingerprint and filter.
func (s *Service) Daily(ctx context.Context, req Request, filter contracts.DailyFilter) (*DailyView, error) {
	f, err := daily.Normalize(filter)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithField("request_id", req.RequestID)
	fingerprint := Fingerprint(req.CSV, req.Account, s.engine.CalendarVersion())
	key := redis.DailyKey(fingerprint, f.Status, f.SortBy, f.SortOrder)

	var cached DailyView
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Daily view cache read failed")
	}
	if found {
		cached.RequestID = req.RequestID
		cached.Cached = true
		return &cached, nil
	}

	rep, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	days, err := daily.Query(rep.Daily, f)
	if err != nil {
		return nil, err
	}

	view := &DailyView{
		Days:      days,
		Summary:   daily.Summarize(days),
		Filter:    f,
		RequestID: req.RequestID,
		Cached:    rep.Cached,
	}
	if err := s.cache.Set(ctx, key, view, s.ttl); err != nil {
		log.WithError(err).Warn("Daily view cache write failed")
	}
	return view, nil
}

func (s *Service) envelope(result *contracts.AnalysisResult, requestID string, cached bool) *contracts.Report {
	return &contracts.Report{
		AnalysisResult: result,
		RequestID:      requestID,
		GeneratedAt:    s.now().UTC(),
		Cached:         cached,
	}
}

// Fingerprint identifies an analysis input. Any change in the CSV text, the
// account parameters or the calendar snapshot yields a different value.
func Fingerprint(csv string, acct contracts.AccountConfig, calendarVersion string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%t|%d|%s\n",
		acct.AccountType,
		acct.CurrentBalance.String(),
		acct.Offset(),
		acct.CheckNewsEvents,
		acct.WithdrawalsTaken,
		calendarVersion,
	)
	h.Write([]byte(csv))
	return hex.EncodeToString(h.Sum(nil))
}
