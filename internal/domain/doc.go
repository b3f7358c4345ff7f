// Package domain contains the core entities of the learning progress engine:
// flashcard schedules, the learner's gamification state, subject progress,
// achievement definitions and the activity events that drive them.
//
// Types here carry no persistence or transport concerns. Scheduling math lives
// in the srs subpackage and the XP, level, streak and achievement rules live in
// the gamification subpackage.
package domain
