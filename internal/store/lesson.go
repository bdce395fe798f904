package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorstack/gradebook/internal/model"
)

// CreateLesson inserts a lesson. A missing LessonID gets a generated one.
func (s *Store) CreateLesson(ctx context.Context, lesson model.Lesson) (*model.Lesson, error) {
	if lesson.LessonID == "" {
		lesson.LessonID = uuid.NewString()
	}
	lesson.RecordKey = s.newKey()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (record_key, lesson_id, name, created_by, deleted)
		 VALUES (?, ?, ?, ?, 0)`,
		lesson.RecordKey, lesson.LessonID, lesson.Name, lesson.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	slog.Info("created lesson", "lesson_id", lesson.LessonID, "name", lesson.Name)
	return &lesson, nil
}

// FindLessonByID returns the lesson with the given business id, or
// (nil, nil). Deleted lessons are included so a caller presenting an
// already-tombstoned id can be told so instead of "not found".
func (s *Store) FindLessonByID(ctx context.Context, lessonID string) (*model.Lesson, error) {
	var l model.Lesson
	var deleted int
	err := s.db.QueryRowContext(ctx,
		`SELECT record_key, lesson_id, name, created_by, deleted
		 FROM lessons WHERE lesson_id = ?`, lessonID,
	).Scan(&l.RecordKey, &l.LessonID, &l.Name, &l.CreatedBy, &deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Deleted = deleted != 0
	return &l, nil
}

// FindLessonsAfter returns up to limit live lessons strictly after
// afterKey in descending record-key order.
func (s *Store) FindLessonsAfter(ctx context.Context, afterKey string, limit int) ([]model.Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_key, lesson_id, name, created_by
		 FROM lessons
		 WHERE deleted = 0 AND (? = '' OR record_key < ?)
		 ORDER BY record_key DESC
		 LIMIT ?`,
		afterKey, afterKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.RecordKey, &l.LessonID, &l.Name, &l.CreatedBy); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// TombstoneLesson marks the lesson deleted, rewrites its business id to
// deletedLessonID and returns the updated row.
func (s *Store) TombstoneLesson(ctx context.Context, lessonID, deletedLessonID string) (*model.Lesson, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE lessons SET deleted = 1, lesson_id = ? WHERE lesson_id = ? AND deleted = 0`,
		deletedLessonID, lessonID,
	)
	if err != nil {
		return nil, err
	}
	var l model.Lesson
	var deleted int
	err = s.db.QueryRowContext(ctx,
		`SELECT record_key, lesson_id, name, created_by, deleted
		 FROM lessons WHERE lesson_id = ?`, deletedLessonID,
	).Scan(&l.RecordKey, &l.LessonID, &l.Name, &l.CreatedBy, &deleted)
	if err != nil {
		return nil, err
	}
	l.Deleted = deleted != 0
	slog.Info("tombstoned lesson", "lesson_id", lessonID, "deleted_id", deletedLessonID)
	return &l, nil
}
