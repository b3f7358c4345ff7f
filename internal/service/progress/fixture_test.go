package progress

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/events"
	"github.com/dunskii/studyhub/internal/mocks"
	"github.com/dunskii/studyhub/internal/platform/metrics"
	"github.com/dunskii/studyhub/internal/refdata"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*events.ProgressEvent
}

func (h *recordingHandler) HandleEvent(_ context.Context, e *events.ProgressEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) types() []events.Type {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.Type, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *mocks.MemoryStore
	svc      Service
	clock    *FixedClock
	handler  *recordingHandler
	registry *prometheus.Registry
	levels   *gamification.LevelCalculator
	learner  uuid.UUID
	math     domain.Subject
	science  domain.Subject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRules(t, gamification.MustDefaultRuleSet())
}

func newFixtureWithRules(t *testing.T, rules *gamification.RuleSet) *fixture {
	t.Helper()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := mocks.NewMemoryStore()
	learner := uuid.New()
	mem.AddLearner(learner)

	math := domain.Subject{ID: uuid.New(), Code: "MATH", Name: "Mathematics"}
	science := domain.Subject{ID: uuid.New(), Code: "SCIENCE", Name: "Science"}
	mem.AddSubject(math)
	mem.AddSubject(science)

	clock := &FixedClock{At: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)}
	emitter := events.NewInMemoryEventEmitter(discard)
	handler := &recordingHandler{}
	emitter.RegisterHandler(handler)
	reg := prometheus.NewRegistry()

	svc, err := NewService(Deps{
		Tx:      mem,
		Reads:   mem.Stores(),
		RefData: refdata.Static{Snapshot: refdata.NewSnapshot(rules, []domain.Subject{math, science}, clock.At)},
		Clock:   clock,
		Emitter: emitter,
		Metrics: metrics.New(reg),
		Logger:  discard,
	})
	require.NoError(t, err)

	return &fixture{
		store:    mem,
		svc:      svc,
		clock:    clock,
		handler:  handler,
		registry: reg,
		levels:   gamification.NewLevelCalculator(rules.Levels),
		learner:  learner,
		math:     math,
		science:  science,
	}
}

// putState commits a state for the fixture learner with a level consistent
// with its XP.
func (f *fixture) putState(mutate func(s *domain.GamificationState)) {
	st := domain.NewGamificationState(f.learner)
	mutate(st)
	st.Level = f.levels.LevelForXP(st.TotalXP)
	f.store.PutState(st)
}

func (f *fixture) yesterday() domain.Date {
	return f.clock.Today().AddDays(-1)
}

func (f *fixture) unlockedAt() time.Time {
	return f.clock.At.Add(-48 * time.Hour)
}

// counter returns the value of a counter series whose labels include want.
func (f *fixture) counter(t *testing.T, name string, want map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(want) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
