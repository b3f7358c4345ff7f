// Package metrics exposes the Prometheus instruments recorded by the
// progress engine and the handler that serves them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studyhub"

// Recorder holds the engine's instruments. A nil *Recorder is valid and
// records nothing, so components can run without metrics.
type Recorder struct {
	xpAwarded          *prometheus.CounterVec
	xpCapped           *prometheus.CounterVec
	unknownKeys        *prometheus.CounterVec
	achievements       *prometheus.CounterVec
	levelUps           prometheus.Counter
	streakMilestones   *prometheus.CounterVec
	progressEvents     *prometheus.CounterVec
	eventDuration      *prometheus.HistogramVec
	concurrentConflict prometheus.Counter
	refdataLoads       *prometheus.CounterVec
	reviews            *prometheus.CounterVec
}

// New registers the instruments with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated from the default registry.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		xpAwarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "XP credited to learners after caps and multipliers, by activity",
		}, []string{"activity"}),
		xpCapped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_capped_total",
			Help:      "XP requests reduced by the daily cap, by activity",
		}, []string{"activity"}),
		unknownKeys: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_reference_keys_total",
			Help:      "Unknown activity types or requirement keys encountered, by kind",
		}, []string{"kind"}),
		achievements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by code",
		}, []string{"code"}),
		levelUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Level increases across all learners",
		}),
		streakMilestones: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_milestones_total",
			Help:      "Streak milestones reached, by milestone length",
		}, []string{"milestone"}),
		progressEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_events_total",
			Help:      "Orchestrated progress events, by event and outcome",
		}, []string{"event", "outcome"}),
		eventDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "progress_event_duration_seconds",
			Help:      "Duration of orchestrated progress events including the transaction",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"event"}),
		concurrentConflict: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrent_modification_total",
			Help:      "Saves rejected by the optimistic version check",
		}),
		refdataLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refdata_loads_total",
			Help:      "Reference data snapshot loads, by outcome",
		}, []string{"outcome"}),
		reviews: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flashcard_reviews_total",
			Help:      "Flashcard reviews scheduled, by result",
		}, []string{"result"}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (r *Recorder) XPAwarded(activity string, amount int) {
	if r == nil || amount <= 0 {
		return
	}
	r.xpAwarded.WithLabelValues(activity).Add(float64(amount))
}

func (r *Recorder) XPCapped(activity string) {
	if r == nil {
		return
	}
	r.xpCapped.WithLabelValues(activity).Inc()
}

// UnknownKey counts a reference key missing from the rule set. kind is
// "activity" or "requirement".
func (r *Recorder) UnknownKey(kind string) {
	if r == nil {
		return
	}
	r.unknownKeys.WithLabelValues(kind).Inc()
}

func (r *Recorder) AchievementUnlocked(code string) {
	if r == nil {
		return
	}
	r.achievements.WithLabelValues(code).Inc()
}

func (r *Recorder) LevelUp() {
	if r == nil {
		return
	}
	r.levelUps.Inc()
}

func (r *Recorder) StreakMilestone(days int) {
	if r == nil {
		return
	}
	r.streakMilestones.WithLabelValues(strconv.Itoa(days)).Inc()
}

// ObserveEvent records the outcome and duration of one orchestrated event.
func (r *Recorder) ObserveEvent(event string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.progressEvents.WithLabelValues(event, outcome).Inc()
	r.eventDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

func (r *Recorder) ConcurrentModification() {
	if r == nil {
		return
	}
	r.concurrentConflict.Inc()
}

func (r *Recorder) RefdataLoad(err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.refdataLoads.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Review(successful bool) {
	if r == nil {
		return
	}
	result := "failed"
	if successful {
		result = "passed"
	}
	r.reviews.WithLabelValues(result).Inc()
}
