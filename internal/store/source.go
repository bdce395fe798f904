package store

import (
	"context"

	"github.com/tutorstack/gradebook/internal/model"
)

// SessionSource adapts the store to the pagination engine's ordered
// source contract for sessions.
type SessionSource struct {
	s *Store
}

// Sessions returns the store's paginated session source.
func (s *Store) Sessions() SessionSource { return SessionSource{s: s} }

func (src SessionSource) FindAfter(ctx context.Context, afterKey string, limit int) ([]model.Session, error) {
	return src.s.FindSessionsAfter(ctx, afterKey, limit)
}

// LessonSource adapts the store to the pagination engine's ordered
// source contract for lessons.
type LessonSource struct {
	s *Store
}

// Lessons returns the store's paginated lesson source.
func (s *Store) Lessons() LessonSource { return LessonSource{s: s} }

func (src LessonSource) FindAfter(ctx context.Context, afterKey string, limit int) ([]model.Lesson, error) {
	return src.s.FindLessonsAfter(ctx, afterKey, limit)
}
