package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorstack/gradebook/internal/model"
)

// ExportAll builds an export of every lesson and session, tombstoned
// records included, grouped by the lesson id each session references.
func (s *Store) ExportAll(ctx context.Context) (*model.GradingExport, error) {
	lessonRows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id, name, deleted FROM lessons ORDER BY record_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer lessonRows.Close()

	export := &model.GradingExport{ExportedAt: time.Now()}
	byLesson := make(map[string]int)
	for lessonRows.Next() {
		var le model.LessonExport
		var deleted int
		if err := lessonRows.Scan(&le.LessonID, &le.Name, &deleted); err != nil {
			return nil, err
		}
		le.Deleted = deleted != 0
		byLesson[le.LessonID] = len(export.Lessons)
		export.Lessons = append(export.Lessons, le)
	}
	if err := lessonRows.Err(); err != nil {
		return nil, err
	}

	sessRows, err := s.db.QueryContext(ctx,
		`SELECT record_key, session_id, lesson_id, username, question_text, deleted
		 FROM sessions ORDER BY record_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer sessRows.Close()

	var sessions []model.Session
	for sessRows.Next() {
		var sess model.Session
		var deleted int
		if err := sessRows.Scan(&sess.RecordKey, &sess.SessionID, &sess.LessonID, &sess.Username, &sess.Question.Text, &deleted); err != nil {
			return nil, err
		}
		sess.Deleted = deleted != 0
		sessions = append(sessions, sess)
	}
	if err := sessRows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		if err := s.loadSessionDetail(ctx, &sessions[i]); err != nil {
			return nil, fmt.Errorf("load session %q: %w", sessions[i].SessionID, err)
		}
		se := model.SessionExport{
			SessionID:     sessions[i].SessionID,
			Username:      sessions[i].Username,
			Question:      sessions[i].Question,
			UserResponses: sessions[i].UserResponses,
			Deleted:       sessions[i].Deleted,
		}
		if idx, ok := byLesson[sessions[i].LessonID]; ok {
			export.Lessons[idx].Sessions = append(export.Lessons[idx].Sessions, se)
		} else {
			export.Orphaned = append(export.Orphaned, se)
		}
	}
	return export, nil
}
