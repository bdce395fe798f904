package grading

import (
	"context"
	"errors"
	"testing"

	"github.com/tutorstack/gradebook/internal/model"
)

// fakeSessions keeps session aggregates in memory and counts writes.
type fakeSessions struct {
	sessions map[string]*model.Session
	findErr  error
	writeErr error
	writes   int
}

func (f *fakeSessions) FindSessionByID(_ context.Context, sessionID string) (*model.Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeSessions) SetGraderGrade(ctx context.Context, sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.writes++
	sess := f.sessions[sessionID]
	sess.UserResponses[answerIndex].ExpectationScores[expectationIndex].GraderGrade = grade
	return f.FindSessionByID(ctx, sessionID)
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: map[string]*model.Session{
			"session 1": {
				RecordKey: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
				SessionID: "session 1",
				Username:  "username1",
				Question: model.Question{
					Text: "question?",
					Expectations: []model.Expectation{
						{Text: "expected text 1"},
						{Text: "expected text 2"},
					},
				},
				UserResponses: []model.UserResponse{
					{
						Text: "answer1",
						ExpectationScores: []model.ExpectationScore{
							{ClassifierGrade: "Good", GraderGrade: ""},
						},
					},
					{
						Text: "answer2",
						ExpectationScores: []model.ExpectationScore{
							{ClassifierGrade: "Bad", GraderGrade: ""},
						},
					},
				},
			},
		},
	}
}

func TestSetGrade(t *testing.T) {
	f := newFakeSessions()
	e := New(f)

	sess, err := e.SetGrade(context.Background(), "session 1", 0, 0, "Bad")
	if err != nil {
		t.Fatalf("SetGrade: %v", err)
	}

	got := sess.UserResponses[0].ExpectationScores[0]
	if got.ClassifierGrade != "Good" {
		t.Errorf("classifierGrade changed: got %q, want Good", got.ClassifierGrade)
	}
	if got.GraderGrade != "Bad" {
		t.Errorf("graderGrade: got %q, want Bad", got.GraderGrade)
	}

	// The second answer's entry is untouched.
	other := sess.UserResponses[1].ExpectationScores[0]
	if other.ClassifierGrade != "Bad" || other.GraderGrade != "" {
		t.Errorf("unrelated entry mutated: %+v", other)
	}

	// The returned value is the full aggregate, not a diff.
	if sess.Username != "username1" || sess.Question.Text != "question?" {
		t.Errorf("expected full session aggregate, got %+v", sess)
	}
}

func TestSetGradeOverwrites(t *testing.T) {
	f := newFakeSessions()
	e := New(f)

	if _, err := e.SetGrade(context.Background(), "session 1", 0, 0, "Bad"); err != nil {
		t.Fatalf("SetGrade: %v", err)
	}
	sess, err := e.SetGrade(context.Background(), "session 1", 0, 0, "Good")
	if err != nil {
		t.Fatalf("SetGrade overwrite: %v", err)
	}
	if got := sess.UserResponses[0].ExpectationScores[0].GraderGrade; got != "Good" {
		t.Errorf("expected last write to win, got %q", got)
	}
}

func TestSetGradeMissingParams(t *testing.T) {
	e := New(newFakeSessions())

	tests := []struct {
		name      string
		sessionID string
		grade     string
	}{
		{"no sessionId", "", "Bad"},
		{"no grade", "session 1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SetGrade(context.Background(), tt.sessionID, 0, 0, tt.grade)
			if !errors.Is(err, model.ErrMissingParameter) {
				t.Errorf("expected ErrMissingParameter, got %v", err)
			}
		})
	}
}

func TestSetGradeSessionNotFound(t *testing.T) {
	e := New(newFakeSessions())
	_, err := e.SetGrade(context.Background(), "invalidsession", 0, 0, "Bad")
	if !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSetGradeIndexOutOfRange(t *testing.T) {
	f := newFakeSessions()
	e := New(f)

	tests := []struct {
		name   string
		ansIdx int
		expIdx int
	}{
		{"answer index too high", 2, 0},
		{"expectation index too high", 0, 1},
		{"negative answer index", -1, 0},
		{"negative expectation index", 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SetGrade(context.Background(), "session 1", tt.ansIdx, tt.expIdx, "Bad")
			if !errors.Is(err, model.ErrIndexOutOfRange) {
				t.Errorf("expected ErrIndexOutOfRange, got %v", err)
			}
		})
	}
	if f.writes != 0 {
		t.Errorf("out-of-range addressing performed %d writes, want 0", f.writes)
	}
}

func TestSetGradeStoreFailure(t *testing.T) {
	f := newFakeSessions()
	f.findErr = errors.New("connection reset")
	e := New(f)
	_, err := e.SetGrade(context.Background(), "session 1", 0, 0, "Bad")
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
