package patterns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/genogram/internal/patterns"

// Default thresholds.
const (
	DefaultMinScore          = 40
	DefaultSuggestScore      = 60
	DefaultHighPriorityScore = 75
)

// Unlocker attaches content ids to detected patterns. It must return new
// patterns and leave its input untouched.
type Unlocker interface {
	Attach(patterns []Pattern) []Pattern
}

// Engine runs the registered rules against a genogram.
//
// The only state is the rule registry, so an Engine is safe for concurrent
// use and every call works on fresh input.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule

	minScore          int
	suggestScore      int
	highPriorityScore int
	parallel          bool

	unlocker Unlocker
	logger   *logging.Logger
	tracer   trace.Tracer
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinScore sets the score below which matched patterns are dropped.
func WithMinScore(score int) Option {
	return func(e *Engine) { e.minScore = score }
}

// WithSuggestScore sets the score at which a pattern's unlocks are suggested.
func WithSuggestScore(score int) Option {
	return func(e *Engine) { e.suggestScore = score }
}

// WithHighPriorityScore sets the score at which a pattern needs escalation.
func WithHighPriorityScore(score int) Option {
	return func(e *Engine) { e.highPriorityScore = score }
}

// WithParallel evaluates rules concurrently. Results are identical to
// sequential evaluation.
func WithParallel(parallel bool) Option {
	return func(e *Engine) { e.parallel = parallel }
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = append([]Rule(nil), rules...) }
}

// WithUnlocker sets the content mapping used by Analyze.
func WithUnlocker(u Unlocker) Option {
	return func(e *Engine) { e.unlocker = u }
}

// WithLogger sets the engine logger. Nil keeps the no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used for analysis spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMetrics sets the Prometheus collectors. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine with DefaultRules unless WithRules is given.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:             DefaultRules(),
		minScore:          DefaultMinScore,
		suggestScore:      DefaultSuggestScore,
		highPriorityScore: DefaultHighPriorityScore,
		logger:            logging.NewNop(),
		tracer:            otel.Tracer(instrumentationName),
		metrics:           NewMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	sortRules(e.rules)
	return e
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Info().Priority > rules[j].Info().Priority
	})
}

// AddRule registers r and re-sorts by priority. Rules of equal priority keep
// registration order.
func (e *Engine) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
	sortRules(e.rules)
}

// Rules returns rule metadata in evaluation order.
func (e *Engine) Rules() []RuleInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]RuleInfo, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Info()
	}
	return out
}

func (e *Engine) snapshotRules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.rules...)
}

// DetectPatterns builds a Context and runs Detect.
func (e *Engine) DetectPatterns(ctx context.Context, members []genogram.Member, relationships []genogram.Relationship, events []genogram.Event, rootID string, maxDepth int) ([]Pattern, error) {
	return e.Detect(ctx, NewContext(members, relationships, events, rootID, maxDepth))
}

// Detect runs every rule in priority order, drops patterns below the minimum
// score and sorts the rest by score, descending. Ties keep rule priority
// order. The result is never nil.
//
// Errors are returned only for context cancellation or a rule violating its
// invariants (see ErrInvariant).
func (e *Engine) Detect(ctx context.Context, c *Context) (result []Pattern, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "patterns.Detect")
	defer func() {
		e.observe(start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("patterns.count", len(result)))
		}
		span.End()
	}()

	rules := e.snapshotRules()
	span.SetAttributes(
		attribute.Int("patterns.rules", len(rules)),
		attribute.Int("genogram.events", len(c.events)),
		attribute.Int("genogram.members", c.MemberCount()),
	)

	matched, err := e.evaluate(ctx, c, rules)
	if err != nil {
		return nil, err
	}

	result = make([]Pattern, 0, len(matched))
	for _, p := range matched {
		if p.Score < e.minScore {
			e.logger.Warn(ctx, "pattern below minimum score discarded",
				zap.String("rule", p.RuleID),
				zap.Int("score", p.Score),
				zap.Int("min_score", e.minScore))
			if e.metrics != nil {
				e.metrics.PatternsDiscarded.WithLabelValues(p.RuleID).Inc()
			}
			continue
		}
		result = append(result, p)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	if e.metrics != nil {
		for _, p := range result {
			e.metrics.PatternsEmitted.WithLabelValues(p.RuleID).Inc()
		}
	}

	e.logger.Info(ctx, "pattern detection complete",
		zap.Int("rules", len(rules)),
		zap.Int("matched", len(matched)),
		zap.Int("patterns", len(result)),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// evaluate returns the patterns of matching rules in rule order.
func (e *Engine) evaluate(ctx context.Context, c *Context, rules []Rule) ([]Pattern, error) {
	results := make([]*Pattern, len(rules))

	if e.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, r := range rules {
			g.Go(func() error {
				p, err := e.evaluateRule(gctx, c, r)
				results[i] = p
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, r := range rules {
			p, err := e.evaluateRule(ctx, c, r)
			if err != nil {
				return nil, err
			}
			results[i] = p
		}
	}

	matched := make([]Pattern, 0, len(rules))
	for _, p := range results {
		if p != nil {
			matched = append(matched, *p)
		}
	}
	return matched, nil
}

func (e *Engine) evaluateRule(ctx context.Context, c *Context, r Rule) (*Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := r.Info()
	if !r.Matches(c) {
		e.logger.Debug(ctx, "rule evaluated", zap.String("rule", info.ID), zap.Bool("matched", false))
		return nil, nil
	}

	p := r.Emit(c)
	if err := checkInvariants(info, p); err != nil {
		e.logger.Error(ctx, "rule violated invariant", zap.String("rule", info.ID), zap.Error(err))
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RuleFiringsTotal.WithLabelValues(info.ID).Inc()
	}
	e.logger.Debug(ctx, "rule evaluated",
		zap.String("rule", info.ID),
		zap.Bool("matched", true),
		zap.Int("score", p.Score),
		zap.Int("evidence", len(p.Evidence)))
	return &p, nil
}

func checkInvariants(info RuleInfo, p Pattern) error {
	if p.Score < MinScore || p.Score > MaxScore {
		return fmt.Errorf("%w: rule %s scored %d", ErrInvariant, info.ID, p.Score)
	}
	if len(p.Evidence) == 0 {
		return fmt.Errorf("%w: rule %s emitted a pattern without evidence", ErrInvariant, info.ID)
	}
	return nil
}

func (e *Engine) observe(start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "canceled"
	case err != nil:
		result = "error"
	}
	e.metrics.AnalysesTotal.WithLabelValues(result).Inc()
	e.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
}

// SuggestContent returns the distinct unlock ids of patterns scoring at least
// the suggest threshold, in first-seen order.
func (e *Engine) SuggestContent(patterns []Pattern) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range patterns {
		if p.Score < e.suggestScore {
			continue
		}
		for _, id := range p.Unlocks {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// HighPriorityPatterns returns the patterns that should nudge the user
// toward professional support.
func (e *Engine) HighPriorityPatterns(patterns []Pattern) []Pattern {
	out := []Pattern{}
	for _, p := range patterns {
		if p.Score >= e.highPriorityScore {
			out = append(out, p)
		}
	}
	return out
}

// Analyze runs a full pass over snap: detection, unlock attachment,
// suggestions, escalation and statistics.
func (e *Engine) Analyze(ctx context.Context, snap *genogram.Snapshot, maxDepth int) (*Analysis, error) {
	id := uuid.NewString()
	ctx = logging.WithAnalysisID(ctx, id)
	ctx = logging.WithRootMember(ctx, snap.RootMemberID)

	ctx, span := e.tracer.Start(ctx, "patterns.Analyze", trace.WithAttributes(
		attribute.String("analysis.id", id),
	))
	defer span.End()

	c := ContextFromSnapshot(snap, maxDepth)
	found, err := e.Detect(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to detect patterns: %w", err)
	}

	if e.unlocker != nil {
		found = e.unlocker.Attach(found)
	}

	a := &Analysis{
		ID:               id,
		RootMemberID:     snap.RootMemberID,
		GeneratedAt:      time.Now().UTC(),
		Patterns:         found,
		SuggestedContent: e.SuggestContent(found),
		HighPriority:     e.HighPriorityPatterns(found),
		Stats:            c.Stats(),
	}
	span.SetAttributes(
		attribute.Int("patterns.count", len(a.Patterns)),
		attribute.Int("patterns.high_priority", len(a.HighPriority)),
	)
	return a, nil
}
