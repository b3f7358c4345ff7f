package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names a kind of progress notification.
type Type string

const (
	TypeLevelUp             Type = "level_up"
	TypeStreakMilestone     Type = "streak_milestone"
	TypeAchievementUnlocked Type = "achievement_unlocked"
)

// ProgressEvent is a notification about a committed change to a learner's
// gamification state.
type ProgressEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	LearnerID  uuid.UUID       `json:"learner_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// LevelUpPayload accompanies TypeLevelUp.
type LevelUpPayload struct {
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
	Title         string `json:"title"`
	TotalXP       int    `json:"total_xp"`
}

// StreakMilestonePayload accompanies TypeStreakMilestone.
type StreakMilestonePayload struct {
	Milestone     int `json:"milestone"`
	CurrentStreak int `json:"current_streak"`
}

// AchievementPayload accompanies TypeAchievementUnlocked.
type AchievementPayload struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	XPReward int    `json:"xp_reward"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *ProgressEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewProgressEvent builds an event for learnerID with payload serialized as JSON.
func NewProgressEvent(eventType Type, learnerID uuid.UUID, payload interface{}, occurredAt time.Time) (*ProgressEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &ProgressEvent{
		ID:         uuid.New(),
		Type:       eventType,
		LearnerID:  learnerID,
		Payload:    payloadBytes,
		OccurredAt: occurredAt,
	}, nil
}

// EventHandler processes progress events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *ProgressEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *ProgressEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *ProgressEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes events without knowledge of their handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *ProgressEvent) error
}
