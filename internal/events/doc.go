// Package events carries progress notifications out of the engine.
//
// The progress service emits a ProgressEvent after a transaction commits
// whenever a learner levels up, reaches a streak milestone or unlocks an
// achievement. Delivery (push, email, websockets) belongs to handlers
// registered on the emitter; the engine only publishes.
package events
