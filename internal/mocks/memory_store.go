package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/store"
)

type learnerSubject struct {
	learner uuid.UUID
	subject uuid.UUID
}

type learnerCard struct {
	learner uuid.UUID
	card    uuid.UUID
}

type sessionRecord struct {
	session     domain.StudySession
	completedAt time.Time
}

type noteRecord struct {
	learnerID  uuid.UUID
	subjectID  *uuid.UUID
	uploadedAt time.Time
}

// memoryData is one version of the in-memory database.
type memoryData struct {
	learners   map[uuid.UUID]struct{}
	subjects   map[uuid.UUID]domain.Subject
	flashcards map[uuid.UUID]domain.Flashcard
	states     map[uuid.UUID]*domain.GamificationState
	progress   map[learnerSubject]*domain.SubjectProgress
	schedules  map[learnerCard]*domain.FlashcardSchedule
	reviews    []domain.FlashcardReview
	sessions   map[uuid.UUID]sessionRecord
	notes      []noteRecord
}

func newMemoryData() *memoryData {
	return &memoryData{
		learners:   make(map[uuid.UUID]struct{}),
		subjects:   make(map[uuid.UUID]domain.Subject),
		flashcards: make(map[uuid.UUID]domain.Flashcard),
		states:     make(map[uuid.UUID]*domain.GamificationState),
		progress:   make(map[learnerSubject]*domain.SubjectProgress),
		schedules:  make(map[learnerCard]*domain.FlashcardSchedule),
		sessions:   make(map[uuid.UUID]sessionRecord),
	}
}

func (d *memoryData) clone() *memoryData {
	out := newMemoryData()
	for k, v := range d.learners {
		out.learners[k] = v
	}
	for k, v := range d.subjects {
		out.subjects[k] = v
	}
	for k, v := range d.flashcards {
		out.flashcards[k] = v
	}
	for k, v := range d.states {
		out.states[k] = v.Clone()
	}
	for k, v := range d.progress {
		out.progress[k] = v.Clone()
	}
	for k, v := range d.schedules {
		s := *v
		out.schedules[k] = &s
	}
	out.reviews = append(out.reviews, d.reviews...)
	for k, v := range d.sessions {
		out.sessions[k] = v
	}
	out.notes = append(out.notes, d.notes...)
	return out
}

// MemoryStore is an in-memory implementation of every store interface and of
// store.TxManager. Transactions run one at a time on a private copy of the
// data that replaces the committed copy only when the unit of work succeeds,
// so rollback behaviour can be asserted.
//
// Fail injects errors: when it returns non-nil for an operation name such as
// "Gamification.Save" that operation fails with the returned error.
type MemoryStore struct {
	Fail func(op string) error

	txMu sync.Mutex
	mu   sync.RWMutex
	data *memoryData

	Commits   int
	Rollbacks int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

// AddLearner registers a learner.
func (m *MemoryStore) AddLearner(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.learners[id] = struct{}{}
}

// AddSubject registers a subject.
func (m *MemoryStore) AddSubject(subject domain.Subject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.subjects[subject.ID] = subject
}

// AddFlashcard registers a flashcard owned by card.LearnerID.
func (m *MemoryStore) AddFlashcard(card domain.Flashcard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.flashcards[card.ID] = card
}

// PutState stores state as committed, bypassing the version check.
func (m *MemoryStore) PutState(state *domain.GamificationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.learners[state.LearnerID] = struct{}{}
	m.data.states[state.LearnerID] = state.Clone()
}

// State returns a copy of the committed state of a learner, or nil.
func (m *MemoryStore) State(learnerID uuid.UUID) *domain.GamificationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.states[learnerID].Clone()
}

// Progress returns a copy of the committed subject progress, or nil.
func (m *MemoryStore) Progress(learnerID, subjectID uuid.UUID) *domain.SubjectProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.progress[learnerSubject{learnerID, subjectID}].Clone()
}

// Schedule returns a copy of the committed schedule, or nil.
func (m *MemoryStore) Schedule(learnerID, flashcardID uuid.UUID) *domain.FlashcardSchedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data.schedules[learnerCard{learnerID, flashcardID}]
	if !ok {
		return nil
	}
	out := *s
	return &out
}

// Reviews returns the committed review log.
func (m *MemoryStore) Reviews() []domain.FlashcardReview {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.FlashcardReview(nil), m.data.reviews...)
}

// SessionCount returns the number of committed sessions.
func (m *MemoryStore) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.sessions)
}

// Stores returns non-transactional stores reading and writing committed data.
func (m *MemoryStore) Stores() store.Stores {
	v := &memoryView{owner: m}
	return store.Stores{
		Gamification:    &memoryGamificationStore{v},
		SubjectProgress: &memorySubjectProgressStore{v},
		Flashcards:      &memoryFlashcardStore{v},
		Stats:           &memoryStatsStore{v},
	}
}

// WithinTx implements store.TxManager.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := m.fail("TxManager.Begin"); err != nil {
		return err
	}

	m.mu.RLock()
	work := m.data.clone()
	m.mu.RUnlock()

	v := &memoryView{owner: m, work: work}
	stores := store.Stores{
		Gamification:    &memoryGamificationStore{v},
		SubjectProgress: &memorySubjectProgressStore{v},
		Flashcards:      &memoryFlashcardStore{v},
		Stats:           &memoryStatsStore{v},
	}

	if err := fn(ctx, stores); err != nil {
		m.Rollbacks++
		return err
	}
	if err := m.fail("TxManager.Commit"); err != nil {
		m.Rollbacks++
		return err
	}

	m.mu.Lock()
	m.data = work
	m.mu.Unlock()
	m.Commits++
	return nil
}

func (m *MemoryStore) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

// memoryView routes reads and writes either to a transaction's working copy
// or, outside a transaction, to the committed data under the store lock.
type memoryView struct {
	owner *MemoryStore
	work  *memoryData
}

func (v *memoryView) read(fn func(d *memoryData) error) error {
	if v.work != nil {
		return fn(v.work)
	}
	v.owner.mu.RLock()
	defer v.owner.mu.RUnlock()
	return fn(v.owner.data)
}

func (v *memoryView) write(fn func(d *memoryData) error) error {
	if v.work != nil {
		return fn(v.work)
	}
	v.owner.mu.Lock()
	defer v.owner.mu.Unlock()
	return fn(v.owner.data)
}

type memoryGamificationStore struct{ v *memoryView }

func (s *memoryGamificationStore) Get(_ context.Context, learnerID uuid.UUID) (*domain.GamificationState, error) {
	if err := s.v.owner.fail("Gamification.Get"); err != nil {
		return nil, err
	}
	var out *domain.GamificationState
	err := s.v.read(func(d *memoryData) error {
		if _, ok := d.learners[learnerID]; !ok {
			return store.ErrLearnerNotFound
		}
		if st, ok := d.states[learnerID]; ok {
			out = st.Clone()
			return nil
		}
		out = domain.NewGamificationState(learnerID)
		return nil
	})
	return out, err
}

func (s *memoryGamificationStore) GetForUpdate(ctx context.Context, learnerID uuid.UUID) (*domain.GamificationState, error) {
	if err := s.v.owner.fail("Gamification.GetForUpdate"); err != nil {
		return nil, err
	}
	return s.Get(ctx, learnerID)
}

func (s *memoryGamificationStore) Save(_ context.Context, state *domain.GamificationState) error {
	if err := s.v.owner.fail("Gamification.Save"); err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return store.NewStoreError("gamification", "save", "invalid state", err)
	}
	return s.v.write(func(d *memoryData) error {
		if _, ok := d.learners[state.LearnerID]; !ok {
			return store.ErrLearnerNotFound
		}
		var stored int64
		if cur, ok := d.states[state.LearnerID]; ok {
			stored = cur.Version
		}
		if stored != state.Version {
			return store.ErrConcurrentModification
		}
		state.Version++
		d.states[state.LearnerID] = state.Clone()
		return nil
	})
}

func (s *memoryGamificationStore) WithTx(*sql.Tx) store.GamificationStore { return s }

type memorySubjectProgressStore struct{ v *memoryView }

func (s *memorySubjectProgressStore) Get(_ context.Context, learnerID, subjectID uuid.UUID) (*domain.SubjectProgress, error) {
	if err := s.v.owner.fail("SubjectProgress.Get"); err != nil {
		return nil, err
	}
	var out *domain.SubjectProgress
	err := s.v.read(func(d *memoryData) error {
		p, ok := d.progress[learnerSubject{learnerID, subjectID}]
		if !ok {
			return store.ErrSubjectProgressNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (s *memorySubjectProgressStore) GetForUpdate(ctx context.Context, learnerID, subjectID uuid.UUID) (*domain.SubjectProgress, error) {
	return s.Get(ctx, learnerID, subjectID)
}

func (s *memorySubjectProgressStore) ListByLearner(_ context.Context, learnerID uuid.UUID) ([]*domain.SubjectProgress, error) {
	var out []*domain.SubjectProgress
	err := s.v.read(func(d *memoryData) error {
		for k, p := range d.progress {
			if k.learner == learnerID {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (s *memorySubjectProgressStore) Save(_ context.Context, progress *domain.SubjectProgress) error {
	if err := s.v.owner.fail("SubjectProgress.Save"); err != nil {
		return err
	}
	return s.v.write(func(d *memoryData) error {
		if _, ok := d.subjects[progress.SubjectID]; !ok {
			return store.ErrSubjectNotFound
		}
		d.progress[learnerSubject{progress.LearnerID, progress.SubjectID}] = progress.Clone()
		return nil
	})
}

func (s *memorySubjectProgressStore) WithTx(*sql.Tx) store.SubjectProgressStore { return s }

type memoryFlashcardStore struct{ v *memoryView }

func (s *memoryFlashcardStore) GetFlashcard(_ context.Context, flashcardID uuid.UUID) (*domain.Flashcard, error) {
	var out *domain.Flashcard
	err := s.v.read(func(d *memoryData) error {
		card, ok := d.flashcards[flashcardID]
		if !ok {
			return store.ErrFlashcardNotFound
		}
		out = &card
		return nil
	})
	return out, err
}

func (s *memoryFlashcardStore) Get(_ context.Context, learnerID, flashcardID uuid.UUID) (*domain.FlashcardSchedule, error) {
	var out *domain.FlashcardSchedule
	err := s.v.read(func(d *memoryData) error {
		sch, ok := d.schedules[learnerCard{learnerID, flashcardID}]
		if !ok {
			return store.ErrScheduleNotFound
		}
		cp := *sch
		out = &cp
		return nil
	})
	return out, err
}

func (s *memoryFlashcardStore) GetForUpdate(ctx context.Context, learnerID, flashcardID uuid.UUID) (*domain.FlashcardSchedule, error) {
	if err := s.v.owner.fail("Flashcards.GetForUpdate"); err != nil {
		return nil, err
	}
	return s.Get(ctx, learnerID, flashcardID)
}

func (s *memoryFlashcardStore) Save(_ context.Context, schedule *domain.FlashcardSchedule) error {
	if err := s.v.owner.fail("Flashcards.Save"); err != nil {
		return err
	}
	if err := schedule.Validate(); err != nil {
		return store.NewStoreError("flashcard_schedule", "save", "invalid schedule", err)
	}
	return s.v.write(func(d *memoryData) error {
		cp := *schedule
		d.schedules[learnerCard{schedule.LearnerID, schedule.FlashcardID}] = &cp
		return nil
	})
}

func (s *memoryFlashcardStore) RecordReview(_ context.Context, review *domain.FlashcardReview) error {
	if err := s.v.owner.fail("Flashcards.RecordReview"); err != nil {
		return err
	}
	return s.v.write(func(d *memoryData) error {
		d.reviews = append(d.reviews, *review)
		return nil
	})
}

func (s *memoryFlashcardStore) SubjectReviewTotals(_ context.Context, learnerID, subjectID uuid.UUID) (int, int, error) {
	var reviews, correct int
	err := s.v.read(func(d *memoryData) error {
		for k, sch := range d.schedules {
			if k.learner != learnerID || sch.SubjectID == nil || *sch.SubjectID != subjectID {
				continue
			}
			reviews += sch.ReviewCount
			correct += sch.CorrectCount
		}
		return nil
	})
	return reviews, correct, err
}

func (s *memoryFlashcardStore) WithTx(*sql.Tx) store.FlashcardScheduleStore { return s }

type memoryStatsStore struct{ v *memoryView }

// GetLearnerStats aggregates the same statistics the PostgreSQL store
// derives with SQL.
func (s *memoryStatsStore) GetLearnerStats(_ context.Context, learnerID uuid.UUID) (domain.LearnerStats, error) {
	if err := s.v.owner.fail("Stats.GetLearnerStats"); err != nil {
		return domain.LearnerStats{}, err
	}
	stats := domain.NewLearnerStats()
	err := s.v.read(func(d *memoryData) error {
		if _, ok := d.learners[learnerID]; !ok {
			return store.ErrLearnerNotFound
		}
		subjectValues := func(id *uuid.UUID) map[string]float64 {
			if id == nil {
				return nil
			}
			subj, ok := d.subjects[*id]
			if !ok {
				return nil
			}
			m, ok := stats.Subjects[subj.Code]
			if !ok {
				m = make(map[string]float64)
				stats.Subjects[subj.Code] = m
			}
			return m
		}

		if st, ok := d.states[learnerID]; ok {
			stats.Values[domain.StatTotalXP] = float64(st.TotalXP)
			stats.Values[domain.StatLevel] = float64(st.Level)
			stats.Values[domain.StatCurrentStreak] = float64(st.Streak.Current)
			stats.Values[domain.StatLongestStreak] = float64(st.Streak.Longest)
		}

		for _, rec := range d.sessions {
			if rec.session.LearnerID != learnerID {
				continue
			}
			targets := []map[string]float64{stats.Values}
			if m := subjectValues(rec.session.SubjectID); m != nil {
				targets = append(targets, m)
			}
			for _, m := range targets {
				m[domain.StatSessionsCompleted]++
				m[domain.StatFlashcardsReviewed] += float64(rec.session.FlashcardsReviewed)
				m[domain.StatFlashcardsCorrect] += float64(rec.session.FlashcardsCorrect)
				m[domain.StatStudyMinutes] += float64(rec.session.DurationMinutes)
				if rec.session.IsPerfect() {
					m[domain.StatPerfectSessions]++
				}
			}
		}

		for _, n := range d.notes {
			if n.learnerID != learnerID {
				continue
			}
			stats.Values[domain.StatNotesUploaded]++
			if m := subjectValues(n.subjectID); m != nil {
				m[domain.StatNotesUploaded]++
			}
		}

		for k, p := range d.progress {
			if k.learner != learnerID {
				continue
			}
			id := p.SubjectID
			if m := subjectValues(&id); m != nil {
				m[domain.StatSubjectXP] = float64(p.XPEarned)
				m[domain.StatMasteryPercent] = float64(p.MasteryPercent)
			}
		}
		return nil
	})
	return stats, err
}

func (s *memoryStatsStore) RecordSession(_ context.Context, session *domain.StudySession, completedAt time.Time) error {
	if err := s.v.owner.fail("Stats.RecordSession"); err != nil {
		return err
	}
	return s.v.write(func(d *memoryData) error {
		if _, ok := d.learners[session.LearnerID]; !ok {
			return store.ErrLearnerNotFound
		}
		if _, dup := d.sessions[session.ID]; dup {
			return store.ErrSessionAlreadyRecorded
		}
		d.sessions[session.ID] = sessionRecord{session: *session, completedAt: completedAt}
		return nil
	})
}

func (s *memoryStatsStore) RecordNoteUpload(_ context.Context, learnerID uuid.UUID, subjectID *uuid.UUID, uploadedAt time.Time) error {
	if err := s.v.owner.fail("Stats.RecordNoteUpload"); err != nil {
		return err
	}
	return s.v.write(func(d *memoryData) error {
		if _, ok := d.learners[learnerID]; !ok {
			return store.ErrLearnerNotFound
		}
		d.notes = append(d.notes, noteRecord{learnerID: learnerID, subjectID: subjectID, uploadedAt: uploadedAt})
		return nil
	})
}

func (s *memoryStatsStore) WithTx(*sql.Tx) store.LearnerStatsStore { return s }

var (
	_ store.TxManager              = (*MemoryStore)(nil)
	_ store.GamificationStore      = (*memoryGamificationStore)(nil)
	_ store.SubjectProgressStore   = (*memorySubjectProgressStore)(nil)
	_ store.FlashcardScheduleStore = (*memoryFlashcardStore)(nil)
	_ store.LearnerStatsStore      = (*memoryStatsStore)(nil)
)
