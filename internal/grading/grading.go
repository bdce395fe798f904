// Package grading applies human grade overrides to a session's nested
// answer/expectation structure. It is the single writer of graderGrade and
// never touches classifierGrade, which belongs to the automated pipeline.
package grading

import (
	"context"
	"fmt"

	"github.com/tutorstack/gradebook/internal/model"
)

// SessionStore is the query capability the engine needs from the
// backing store.
type SessionStore interface {
	// FindSessionByID resolves a live session aggregate by its business
	// id, or (nil, nil) when no such session exists.
	FindSessionByID(ctx context.Context, sessionID string) (*model.Session, error)
	// SetGraderGrade writes one graderGrade field and returns the full
	// post-update session aggregate.
	SetGraderGrade(ctx context.Context, sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error)
}

// Engine reconciles human grades into sessions.
type Engine struct {
	sessions SessionStore
}

// New creates a grading engine over the given store.
func New(sessions SessionStore) *Engine {
	return &Engine{sessions: sessions}
}

// SetGrade writes grade into the graderGrade field of the expectation
// score addressed by (sessionID, answerIndex, expectationIndex) and
// returns the complete updated session. Indices are never auto-created:
// addressing a score that does not exist fails without mutating the
// session. Repeated calls overwrite the previous value.
func (e *Engine) SetGrade(ctx context.Context, sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("missing required param sessionId: %w", model.ErrMissingParameter)
	}
	if grade == "" {
		return nil, fmt.Errorf("missing required param grade: %w", model.ErrMissingParameter)
	}
	if answerIndex < 0 {
		return nil, fmt.Errorf("userAnswerIndex %d: %w", answerIndex, model.ErrIndexOutOfRange)
	}
	if expectationIndex < 0 {
		return nil, fmt.Errorf("userExpectationIndex %d: %w", expectationIndex, model.ErrIndexOutOfRange)
	}

	sess, err := e.sessions.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find session %q: %w: %v", sessionID, model.ErrStoreUnavailable, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, model.ErrSessionNotFound)
	}

	if answerIndex >= len(sess.UserResponses) {
		return nil, fmt.Errorf("userAnswerIndex %d of %d responses: %w",
			answerIndex, len(sess.UserResponses), model.ErrIndexOutOfRange)
	}
	scores := sess.UserResponses[answerIndex].ExpectationScores
	if expectationIndex >= len(scores) {
		return nil, fmt.Errorf("userExpectationIndex %d of %d scores: %w",
			expectationIndex, len(scores), model.ErrIndexOutOfRange)
	}

	updated, err := e.sessions.SetGraderGrade(ctx, sessionID, answerIndex, expectationIndex, grade)
	if err != nil {
		return nil, fmt.Errorf("set grade on session %q: %w: %v", sessionID, model.ErrStoreUnavailable, err)
	}
	return updated, nil
}
