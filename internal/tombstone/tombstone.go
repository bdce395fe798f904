// Package tombstone soft-deletes a lesson and cascades to its sessions.
// Records are never hard-deleted: the deleted flag is flipped and the
// business identifier is rewritten to a collision-free tombstoned form so
// the original identifier stays free for re-creation.
package tombstone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tutorstack/gradebook/internal/model"
)

// Prefix marks a tombstoned business identifier.
const Prefix = "_deleted_"

// LessonStore is the bulk-update capability the manager needs from the
// backing store.
type LessonStore interface {
	// FindLessonByID resolves a lesson by business id, or (nil, nil).
	FindLessonByID(ctx context.Context, lessonID string) (*model.Lesson, error)
	// TombstoneSessions marks every session referencing lessonID as
	// deleted and rewrites its identifiers, returning the session count.
	TombstoneSessions(ctx context.Context, lessonID, deletedLessonID string) (int64, error)
	// TombstoneLesson marks the lesson deleted, rewrites its business id
	// and returns the updated lesson.
	TombstoneLesson(ctx context.Context, lessonID, deletedLessonID string) (*model.Lesson, error)
}

// Authorizer decides whether a user may edit a lesson. Authorization
// policy stays outside the mutation logic.
type Authorizer interface {
	UserCanEdit(u *model.User, l *model.Lesson) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(u *model.User, l *model.Lesson) bool

// UserCanEdit calls f.
func (f AuthorizerFunc) UserCanEdit(u *model.User, l *model.Lesson) bool { return f(u, l) }

// Manager retires lessons and their sessions.
type Manager struct {
	lessons LessonStore
	auth    Authorizer
	now     func() time.Time

	mu         sync.Mutex
	lastMillis int64
}

// New creates a tombstone manager over the given store and policy.
func New(lessons LessonStore, auth Authorizer) *Manager {
	return &Manager{lessons: lessons, auth: auth, now: time.Now}
}

// DeletedID computes the tombstoned form of a business identifier for
// the given moment. The millisecond suffix keeps repeated tombstoning of
// the same original identifier from colliding.
func DeletedID(id string, at time.Time) string {
	return fmt.Sprintf("%s%s_%d", Prefix, id, at.UnixMilli())
}

// IsTombstoned reports whether id already carries the tombstone prefix.
func IsTombstoned(id string) bool {
	return strings.HasPrefix(id, Prefix)
}

// nextMillis returns the current clock reading in milliseconds, bumped
// past the previous reading when the clock has not advanced. Two
// deletions of same-named lessons in the same millisecond would
// otherwise produce colliding tombstoned identifiers.
func (m *Manager) nextMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := m.now().UnixMilli()
	if ms <= m.lastMillis {
		ms = m.lastMillis + 1
	}
	m.lastMillis = ms
	return ms
}

// DeleteLesson soft-deletes the lesson with the given business id on
// behalf of user, cascading to every session that references it.
// Sessions are tombstoned before the lesson; the two bulk operations are
// not wrapped in a transaction, so a concurrent reader can observe
// sessions tombstoned ahead of their lesson. A failure between the two
// leaves the cascade incomplete and is surfaced, never retried.
func (m *Manager) DeleteLesson(ctx context.Context, lessonID string, user *model.User) (*model.Lesson, error) {
	if lessonID == "" {
		return nil, fmt.Errorf("missing required param lessonId: %w", model.ErrMissingParameter)
	}

	lesson, err := m.lessons.FindLessonByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("find lesson %q: %w: %v", lessonID, model.ErrStoreUnavailable, err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("lesson %q: %w", lessonID, model.ErrLessonNotFound)
	}
	if lesson.Deleted || IsTombstoned(lesson.LessonID) {
		return nil, fmt.Errorf("lesson %q: %w", lessonID, model.ErrAlreadyDeleted)
	}
	if !m.auth.UserCanEdit(user, lesson) {
		return nil, fmt.Errorf("lesson %q: %w", lessonID, model.ErrForbidden)
	}

	deletedID := DeletedID(lessonID, time.UnixMilli(m.nextMillis()))

	if _, err := m.lessons.TombstoneSessions(ctx, lessonID, deletedID); err != nil {
		return nil, fmt.Errorf("tombstone sessions of lesson %q: %w: %v", lessonID, model.ErrStoreUnavailable, err)
	}
	updated, err := m.lessons.TombstoneLesson(ctx, lessonID, deletedID)
	if err != nil {
		return nil, fmt.Errorf("tombstone lesson %q: %w: %v", lessonID, model.ErrStoreUnavailable, err)
	}
	return updated, nil
}
