package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleGrader is a human grader who reviews classifier output.
	UserRoleGrader UserRole = "grader"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Lesson groups the sessions recorded for one tutoring dialogue.
// LessonID is the business identifier; RecordKey is the internal,
// totally-ordered key used for pagination.
type Lesson struct {
	RecordKey string `json:"-"`
	LessonID  string `json:"lessonId"`
	Name      string `json:"name"`
	CreatedBy int64  `json:"createdBy"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// Session is one learner's attempt at a lesson's question, with
// per-answer grading data.
type Session struct {
	RecordKey     string         `json:"-"`
	SessionID     string         `json:"sessionId"`
	LessonID      string         `json:"lessonId"`
	Username      string         `json:"username"`
	Question      Question       `json:"question"`
	UserResponses []UserResponse `json:"userResponses"`
	Deleted       bool           `json:"deleted,omitempty"`
}

// Question is the prompt a session's answers are evaluated against.
type Question struct {
	Text         string        `json:"text"`
	Expectations []Expectation `json:"expectations"`
}

// Expectation is a rubric criterion an answer is evaluated against.
type Expectation struct {
	Text string `json:"text"`
}

// UserResponse is a single answer with one score per expectation,
// addressed by position.
type UserResponse struct {
	Text              string             `json:"text"`
	ExpectationScores []ExpectationScore `json:"expectationScores"`
}

// ExpectationScore holds the two independent grades for one
// answer/expectation pair. ClassifierGrade is written only by the
// automated pipeline; GraderGrade only by an authorized human.
// Both are opaque labels ("Good", "Bad", ...) or empty when ungraded.
type ExpectationScore struct {
	ClassifierGrade string `json:"classifierGrade"`
	GraderGrade     string `json:"graderGrade"`
}

// Key returns the session's internal record key for pagination.
func (s Session) Key() string { return s.RecordKey }

// Key returns the lesson's internal record key for pagination.
func (l Lesson) Key() string { return l.RecordKey }
