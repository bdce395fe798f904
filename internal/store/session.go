package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tutorstack/gradebook/internal/model"
	"github.com/tutorstack/gradebook/internal/tombstone"
)

// CreateSession inserts a session aggregate. A missing SessionID gets a
// generated one. Each response gets one score row per expectation the
// answer was evaluated against; responses without pre-filled scores get
// one empty score per question expectation.
func (s *Store) CreateSession(ctx context.Context, sess model.Session) (*model.Session, error) {
	if sess.SessionID == "" {
		sess.SessionID = uuid.NewString()
	}
	sess.RecordKey = s.newKey()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (record_key, session_id, lesson_id, username, question_text, deleted)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		sess.RecordKey, sess.SessionID, sess.LessonID, sess.Username, sess.Question.Text,
	)
	if err != nil {
		return nil, err
	}

	for i, exp := range sess.Question.Expectations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expectations (session_key, expectation_index, text) VALUES (?, ?, ?)`,
			sess.RecordKey, i, exp.Text,
		)
		if err != nil {
			return nil, err
		}
	}

	for ai, resp := range sess.UserResponses {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_responses (session_key, answer_index, text) VALUES (?, ?, ?)`,
			sess.RecordKey, ai, resp.Text,
		)
		if err != nil {
			return nil, err
		}
		scores := resp.ExpectationScores
		if len(scores) == 0 {
			scores = make([]model.ExpectationScore, len(sess.Question.Expectations))
		}
		for ei, score := range scores {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO expectation_scores (session_key, answer_index, expectation_index, classifier_grade, grader_grade)
				 VALUES (?, ?, ?, ?, ?)`,
				sess.RecordKey, ai, ei, score.ClassifierGrade, score.GraderGrade,
			)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Info("created session", "session_id", sess.SessionID, "lesson_id", sess.LessonID)
	return s.FindSessionByID(ctx, sess.SessionID)
}

// FindSessionByID returns the live session aggregate with the given
// business id, or (nil, nil) when no such session exists. Tombstoned
// sessions never resolve: their session_id has been rewritten.
func (s *Store) FindSessionByID(ctx context.Context, sessionID string) (*model.Session, error) {
	var sess model.Session
	var deleted int
	err := s.db.QueryRowContext(ctx,
		`SELECT record_key, session_id, lesson_id, username, question_text, deleted
		 FROM sessions WHERE session_id = ? AND deleted = 0`, sessionID,
	).Scan(&sess.RecordKey, &sess.SessionID, &sess.LessonID, &sess.Username, &sess.Question.Text, &deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Deleted = deleted != 0
	if err := s.loadSessionDetail(ctx, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// FindSessionsAfter returns up to limit live sessions strictly after
// afterKey in descending record-key order. An empty afterKey starts from
// the newest session.
func (s *Store) FindSessionsAfter(ctx context.Context, afterKey string, limit int) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_key, session_id, lesson_id, username, question_text
		 FROM sessions
		 WHERE deleted = 0 AND (? = '' OR record_key < ?)
		 ORDER BY record_key DESC
		 LIMIT ?`,
		afterKey, afterKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.RecordKey, &sess.SessionID, &sess.LessonID, &sess.Username, &sess.Question.Text); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		if err := s.loadSessionDetail(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// SetGraderGrade writes the grader grade of one expectation score and
// returns the full post-update session aggregate.
func (s *Store) SetGraderGrade(ctx context.Context, sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error) {
	return s.setGrade(ctx, sessionID, answerIndex, expectationIndex, "grader_grade", grade)
}

// SetClassifierGrade writes the classifier grade of one expectation
// score. This is the automated pipeline's write path; the grading engine
// never calls it.
func (s *Store) SetClassifierGrade(ctx context.Context, sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error) {
	return s.setGrade(ctx, sessionID, answerIndex, expectationIndex, "classifier_grade", grade)
}

func (s *Store) setGrade(ctx context.Context, sessionID string, answerIndex, expectationIndex int, column, grade string) (*model.Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expectation_scores SET `+column+` = ?
		 WHERE session_key = (SELECT record_key FROM sessions WHERE session_id = ? AND deleted = 0)
		   AND answer_index = ? AND expectation_index = ?`,
		grade, sessionID, answerIndex, expectationIndex,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("no expectation score at session %q answer %d expectation %d",
			sessionID, answerIndex, expectationIndex)
	}
	return s.FindSessionByID(ctx, sessionID)
}

// TombstoneSessions marks every live session of the given lesson as
// deleted, pointing it at the tombstoned lesson id and rewriting its own
// session_id to a tombstoned form so the original stays free for reuse.
// One bulk statement; per-document atomicity only.
func (s *Store) TombstoneSessions(ctx context.Context, lessonID, deletedLessonID string) (int64, error) {
	// The lesson tombstone carries the timestamp suffix; reuse it so the
	// whole cascade shares one instant.
	suffix := deletedLessonID[strings.LastIndexByte(deletedLessonID, '_')+1:]
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
		 SET deleted = 1,
		     lesson_id = ?,
		     session_id = ? || session_id || '_' || ?
		 WHERE lesson_id = ? AND deleted = 0`,
		deletedLessonID, tombstone.Prefix, suffix, lessonID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Info("tombstoned sessions", "lesson_id", lessonID, "count", n)
	return n, nil
}

func (s *Store) loadSessionDetail(ctx context.Context, sess *model.Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM expectations WHERE session_key = ? ORDER BY expectation_index`,
		sess.RecordKey,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var exp model.Expectation
		if err := rows.Scan(&exp.Text); err != nil {
			return err
		}
		sess.Question.Expectations = append(sess.Question.Expectations, exp)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	respRows, err := s.db.QueryContext(ctx,
		`SELECT answer_index, text FROM user_responses WHERE session_key = ? ORDER BY answer_index`,
		sess.RecordKey,
	)
	if err != nil {
		return err
	}
	defer respRows.Close()
	var indices []int
	for respRows.Next() {
		var idx int
		var resp model.UserResponse
		if err := respRows.Scan(&idx, &resp.Text); err != nil {
			return err
		}
		sess.UserResponses = append(sess.UserResponses, resp)
		indices = append(indices, idx)
	}
	if err := respRows.Err(); err != nil {
		return err
	}

	for i, idx := range indices {
		scoreRows, err := s.db.QueryContext(ctx,
			`SELECT classifier_grade, grader_grade FROM expectation_scores
			 WHERE session_key = ? AND answer_index = ? ORDER BY expectation_index`,
			sess.RecordKey, idx,
		)
		if err != nil {
			return err
		}
		for scoreRows.Next() {
			var score model.ExpectationScore
			if err := scoreRows.Scan(&score.ClassifierGrade, &score.GraderGrade); err != nil {
				scoreRows.Close()
				return err
			}
			sess.UserResponses[i].ExpectationScores = append(sess.UserResponses[i].ExpectationScores, score)
		}
		if err := scoreRows.Err(); err != nil {
			scoreRows.Close()
			return err
		}
		scoreRows.Close()
	}
	return nil
}
