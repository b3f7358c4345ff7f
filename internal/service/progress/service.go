package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/events"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/platform/metrics"
	"github.com/dunskii/studyhub/internal/refdata"
	"github.com/dunskii/studyhub/internal/store"
)

var tracer = otel.Tracer("github.com/dunskii/studyhub/internal/service/progress")

// Operation names used for logs, spans and metrics.
const (
	OpSessionComplete   = "session_complete"
	OpFlashcardReviewed = "flashcard_reviewed"
	OpNoteUploaded      = "note_uploaded"
	OpAwardXP           = "award_xp"
	OpRecordActivity    = "record_activity"
	OpCheckAndUnlock    = "check_and_unlock"
	OpOutcomeStarted    = "outcome_started"
	OpOutcomeCompleted  = "outcome_completed"
)

// maxAttempts bounds how often an event is applied when the stored state
// changes underneath it.
const maxAttempts = 2

// UnitFunc is a unit of work run by Service.Run.
type UnitFunc func(ctx context.Context, u *Unit) error

// Service applies study events to learners' gamification state.
type Service interface {
	// SessionComplete awards session XP, advances the streak and evaluates
	// achievements. A session ID that was already recorded is rejected with
	// store.ErrSessionAlreadyRecorded.
	SessionComplete(ctx context.Context, session domain.StudySession) (*SessionResult, error)

	// FlashcardReviewed awards review XP, plus correct-answer XP when
	// isCorrect. It has no streak or achievement side effects.
	FlashcardReviewed(ctx context.Context, learnerID uuid.UUID, subjectID *uuid.UUID, isCorrect bool) (*ReviewXP, error)

	// NoteUploaded records the upload and awards flat note XP.
	NoteUploaded(ctx context.Context, learnerID uuid.UUID, subjectID *uuid.UUID) (*gamification.XPAward, error)

	// AwardXP credits an arbitrary amount for an activity.
	AwardXP(ctx context.Context, learnerID uuid.UUID, req gamification.AwardRequest) (*gamification.XPAward, error)

	// RecordActivity advances the learner's streak for date, or for today
	// when date is zero.
	RecordActivity(ctx context.Context, learnerID uuid.UUID, date domain.Date) (*gamification.StreakUpdate, error)

	// CheckAndUnlock evaluates all achievements for the learner.
	CheckAndUnlock(ctx context.Context, learnerID uuid.UUID) ([]domain.UnlockedAchievement, error)

	// OutcomeStarted marks a curriculum outcome of a subject as in progress.
	OutcomeStarted(ctx context.Context, learnerID, subjectID uuid.UUID, outcome string) (*OutcomeResult, error)

	// OutcomeCompleted moves an outcome to completed and awards flat
	// outcome XP in the subject. Completing it again changes nothing.
	OutcomeCompleted(ctx context.Context, learnerID, subjectID uuid.UUID, outcome string) (*OutcomeResult, error)

	// GetProgress returns a read-only summary, optionally for one subject.
	GetProgress(ctx context.Context, learnerID uuid.UUID, subjectCode string) (*Summary, error)

	// ListAchievements returns every active achievement with the learner's
	// progress towards it.
	ListAchievements(ctx context.Context, learnerID uuid.UUID) ([]AchievementStatus, error)

	// Run executes fn as one atomic unit of work for the learner. Other
	// services use it to combine their own writes with XP awards.
	Run(ctx context.Context, op string, learnerID uuid.UUID, fn UnitFunc) error
}

// Deps are the collaborators of the service.
type Deps struct {
	Tx      store.TxManager
	Reads   store.Stores
	RefData refdata.Provider
	Clock   Clock
	Emitter events.EventEmitter
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

var _ Service = (*service)(nil)

type service struct {
	tx      store.TxManager
	reads   store.Stores
	refdata refdata.Provider
	clock   Clock
	emitter events.EventEmitter
	metrics *metrics.Recorder
	logger  *slog.Logger
	locks   *learnerLocks
}

// NewService creates the progress service. Emitter and Metrics are optional.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, errors.New("transaction manager cannot be nil")
	}
	if deps.Reads.Gamification == nil || deps.Reads.SubjectProgress == nil || deps.Reads.Stats == nil {
		return nil, errors.New("read stores cannot be nil")
	}
	if deps.RefData == nil {
		return nil, errors.New("reference data provider cannot be nil")
	}
	if deps.Clock == nil {
		return nil, errors.New("clock cannot be nil")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &service{
		tx:      deps.Tx,
		reads:   deps.Reads,
		refdata: deps.RefData,
		clock:   deps.Clock,
		emitter: deps.Emitter,
		metrics: deps.Metrics,
		logger:  log.With(slog.String("component", "progress_service")),
		locks:   newLearnerLocks(),
	}, nil
}

// Run implements Service.Run.
func (s *service) Run(ctx context.Context, op string, learnerID uuid.UUID, fn UnitFunc) (err error) {
	ctx, span := tracer.Start(ctx, "progress."+op, trace.WithAttributes(
		attribute.String("learner.id", learnerID.String()),
	))
	started := time.Now()
	defer func() {
		s.metrics.ObserveEvent(op, err, time.Since(started))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", op),
		slog.String("learner_id", learnerID.String()))

	if learnerID == uuid.Nil {
		return domain.NewInvalidInputError("learner_id", "must be set")
	}

	snapshot, err := s.refdata.Get(ctx)
	if err != nil {
		log.Error("failed to load reference data", slog.String("error", err.Error()))
		return NewServiceError(op, "failed to load reference data", err)
	}

	release := s.locks.lock(learnerID)
	defer release()

	now := s.clock.Now()
	today := s.clock.Today()

	var unit *Unit
	for attempt := 1; ; attempt++ {
		unit, err = s.runOnce(ctx, log, snapshot, learnerID, now, today, fn)
		if !errors.Is(err, store.ErrConcurrentModification) {
			break
		}
		s.metrics.ConcurrentModification()
		if attempt == maxAttempts {
			break
		}
		log.Warn("state changed concurrently, re-applying event", slog.Int("attempt", attempt))
	}
	if err != nil {
		if isExpected(err) {
			log.Debug("progress operation rejected", slog.String("error", err.Error()))
			return err
		}
		log.Error("progress operation failed", slog.String("error", err.Error()))
		return NewServiceError(op, "transaction failed", err)
	}

	s.publish(ctx, log, unit)
	return nil
}

// runOnce applies fn in a fresh transaction.
func (s *service) runOnce(
	ctx context.Context,
	log *slog.Logger,
	snapshot *refdata.Snapshot,
	learnerID uuid.UUID,
	now time.Time,
	today domain.Date,
	fn UnitFunc,
) (*Unit, error) {
	var unit *Unit
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores store.Stores) error {
		state, err := stores.Gamification.GetForUpdate(ctx, learnerID)
		if err != nil {
			return fmt.Errorf("lock gamification state: %w", err)
		}
		unit = &Unit{
			Stores:     stores,
			Snapshot:   snapshot,
			LearnerID:  learnerID,
			Now:        now,
			Today:      today,
			svc:        s,
			logger:     log,
			state:      state.Clone(),
			startLevel: state.Level,
			subjects:   make(map[uuid.UUID]*domain.SubjectProgress),
		}
		if err := fn(ctx, unit); err != nil {
			return err
		}
		return unit.flush(ctx)
	})
	return unit, err
}

// publish records metrics and emits progress events for a committed unit.
func (s *service) publish(ctx context.Context, log *slog.Logger, u *Unit) {
	for _, award := range u.awards {
		s.metrics.XPAwarded(string(award.Activity), award.XPEarned)
		if award.CappedXP < award.RequestedXP {
			s.metrics.XPCapped(string(award.Activity))
		}
	}

	var pending []*events.ProgressEvent
	add := func(t events.Type, payload interface{}) {
		event, err := events.NewProgressEvent(t, u.LearnerID, payload, u.Now)
		if err != nil {
			log.Error("failed to build progress event", slog.String("event_type", string(t)), slog.String("error", err.Error()))
			return
		}
		pending = append(pending, event)
	}

	if u.LevelUp() {
		s.metrics.LevelUp()
		add(events.TypeLevelUp, events.LevelUpPayload{
			PreviousLevel: u.startLevel,
			NewLevel:      u.state.Level,
			Title:         u.Snapshot.Ledger.Levels().TitleForLevel(u.state.Level, ""),
			TotalXP:       u.state.TotalXP,
		})
	}
	for _, m := range u.milestones {
		s.metrics.StreakMilestone(m)
		add(events.TypeStreakMilestone, events.StreakMilestonePayload{
			Milestone:     m,
			CurrentStreak: u.state.Streak.Current,
		})
	}
	for _, unlock := range u.unlocks {
		s.metrics.AchievementUnlocked(unlock.Definition.Code)
		add(events.TypeAchievementUnlocked, events.AchievementPayload{
			Code:     unlock.Definition.Code,
			Name:     unlock.Definition.Name,
			XPReward: unlock.Award.XPEarned,
		})
	}

	if s.emitter == nil {
		return
	}
	for _, event := range pending {
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			log.Error("failed to emit progress event",
				slog.String("event_type", string(event.Type)),
				slog.String("error", err.Error()))
		}
	}
}

// SessionComplete implements Service.SessionComplete.
func (s *service) SessionComplete(ctx context.Context, session domain.StudySession) (*SessionResult, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	var result *SessionResult
	err := s.Run(ctx, OpSessionComplete, session.LearnerID, func(ctx context.Context, u *Unit) error {
		if err := u.Stores.Stats.RecordSession(ctx, &session, u.Now); err != nil {
			return fmt.Errorf("record session: %w", err)
		}

		award, err := u.AwardXP(ctx, gamification.AwardRequest{
			Activity:        domain.ActivityStudySession,
			Amount:          u.Snapshot.Ledger.SessionXP(session),
			SubjectID:       session.SubjectID,
			ApplyMultiplier: true,
		})
		if err != nil {
			return err
		}
		xpEarned := award.XPEarned

		if bonus := u.Snapshot.Ledger.PerfectSessionXP(session); bonus > 0 {
			perfect, err := u.AwardXP(ctx, gamification.AwardRequest{
				Activity:        domain.ActivityPerfectSession,
				Amount:          bonus,
				SubjectID:       session.SubjectID,
				ApplyMultiplier: true,
			})
			if err != nil {
				return err
			}
			xpEarned += perfect.XPEarned
		}

		streak := u.RecordActivity(u.Today)

		check, err := u.CheckAndUnlock(ctx)
		if err != nil {
			return err
		}

		result = &SessionResult{
			SessionID:            session.ID,
			XPEarned:             xpEarned,
			MultiplierApplied:    award.MultiplierApplied,
			MilestonesReached:    streak.MilestonesReached,
			AchievementsUnlocked: make([]domain.UnlockedAchievement, 0, len(check.Unlocked)),
		}
		for _, unlock := range check.Unlocked {
			result.BonusXP += unlock.Award.XPEarned
			result.AchievementsUnlocked = append(result.AchievementsUnlocked, unlock.Achievement)
		}
		state := u.State()
		result.TotalXP = state.TotalXP
		result.NewStreak = state.Streak.Current
		result.LongestStreak = state.Streak.Longest
		result.Level = state.Level
		result.LevelUp = u.LevelUp()
		if result.LevelUp {
			result.NewLevelTitle = u.Snapshot.Ledger.Levels().TitleForLevel(state.Level, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FlashcardReviewed implements Service.FlashcardReviewed.
func (s *service) FlashcardReviewed(ctx context.Context, learnerID uuid.UUID, subjectID *uuid.UUID, isCorrect bool) (*ReviewXP, error) {
	var result *ReviewXP
	err := s.Run(ctx, OpFlashcardReviewed, learnerID, func(ctx context.Context, u *Unit) error {
		r, err := u.FlashcardReviewed(ctx, subjectID, isCorrect)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FlashcardReviewed awards the XP of one review within the unit.
func (u *Unit) FlashcardReviewed(ctx context.Context, subjectID *uuid.UUID, isCorrect bool) (*ReviewXP, error) {
	review, err := u.AwardActivity(ctx, domain.ActivityFlashcardReview, subjectID, true)
	if err != nil {
		return nil, err
	}
	result := &ReviewXP{Review: review, XPEarned: review.XPEarned}

	if isCorrect {
		correct, err := u.AwardActivity(ctx, domain.ActivityFlashcardCorrect, subjectID, true)
		if err != nil {
			return nil, err
		}
		result.Correct = &correct
		result.XPEarned += correct.XPEarned
	}

	result.TotalXP = u.state.TotalXP
	result.Level = u.state.Level
	result.LevelUp = u.LevelUp()
	return result, nil
}

// NoteUploaded implements Service.NoteUploaded.
func (s *service) NoteUploaded(ctx context.Context, learnerID uuid.UUID, subjectID *uuid.UUID) (*gamification.XPAward, error) {
	var result gamification.XPAward
	err := s.Run(ctx, OpNoteUploaded, learnerID, func(ctx context.Context, u *Unit) error {
		if subjectID != nil {
			if _, ok := u.Snapshot.SubjectByID(*subjectID); !ok {
				return fmt.Errorf("%w: %s", store.ErrSubjectNotFound, *subjectID)
			}
		}
		if err := u.Stores.Stats.RecordNoteUpload(ctx, learnerID, subjectID, u.Now); err != nil {
			return fmt.Errorf("record note upload: %w", err)
		}
		award, err := u.AwardActivity(ctx, domain.ActivityNoteUpload, subjectID, false)
		result = award
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AwardXP implements Service.AwardXP.
func (s *service) AwardXP(ctx context.Context, learnerID uuid.UUID, req gamification.AwardRequest) (*gamification.XPAward, error) {
	if req.Amount < 0 {
		return nil, domain.NewInvalidInputError("amount",
			fmt.Sprintf("XP amount must not be negative, got %d", req.Amount))
	}

	var result gamification.XPAward
	err := s.Run(ctx, OpAwardXP, learnerID, func(ctx context.Context, u *Unit) error {
		award, err := u.AwardXP(ctx, req)
		result = award
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordActivity implements Service.RecordActivity.
func (s *service) RecordActivity(ctx context.Context, learnerID uuid.UUID, date domain.Date) (*gamification.StreakUpdate, error) {
	var result gamification.StreakUpdate
	err := s.Run(ctx, OpRecordActivity, learnerID, func(_ context.Context, u *Unit) error {
		day := date
		if day.IsZero() {
			day = u.Today
		}
		result = u.RecordActivity(day)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckAndUnlock implements Service.CheckAndUnlock.
func (s *service) CheckAndUnlock(ctx context.Context, learnerID uuid.UUID) ([]domain.UnlockedAchievement, error) {
	unlocked := []domain.UnlockedAchievement{}
	err := s.Run(ctx, OpCheckAndUnlock, learnerID, func(ctx context.Context, u *Unit) error {
		check, err := u.CheckAndUnlock(ctx)
		if err != nil {
			return err
		}
		for _, unlock := range check.Unlocked {
			unlocked = append(unlocked, unlock.Achievement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unlocked, nil
}
