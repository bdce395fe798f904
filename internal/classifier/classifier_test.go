package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/tutorstack/gradebook/internal/model"
)

func TestBuildGradePrompt(t *testing.T) {
	q := model.Question{Text: "What happens to the plant?"}
	e := model.Expectation{Text: "The plant produces oxygen"}

	prompt := buildGradePrompt(q, e)
	if !strings.Contains(prompt, q.Text) {
		t.Error("prompt should contain question text")
	}
	if !strings.Contains(prompt, e.Text) {
		t.Error("prompt should contain expectation text")
	}
	if !strings.Contains(prompt, `"grade"`) {
		t.Error("prompt should describe the JSON response shape")
	}
}

func TestGradeSessionWritesEveryPair(t *testing.T) {
	sess := &model.Session{
		SessionID: "session 1",
		Question: model.Question{
			Text: "question?",
			Expectations: []model.Expectation{
				{Text: "expected text 1"},
				{Text: "expected text 2"},
			},
		},
		UserResponses: []model.UserResponse{
			{Text: "answer1", ExpectationScores: make([]model.ExpectationScore, 2)},
			{Text: "answer2", ExpectationScores: make([]model.ExpectationScore, 2)},
		},
	}

	// One write per response/expectation pair, addressed by position.
	type addr struct{ ai, ei int }
	var writes []addr
	write := func(sessionID string, ai, ei int, grade string) (*model.Session, error) {
		if sessionID != "session 1" {
			t.Errorf("unexpected session id %q", sessionID)
		}
		writes = append(writes, addr{ai, ei})
		return sess, nil
	}

	gradeSessionWith(sess, func(ai, ei int) (string, error) { return "Good", nil }, write)

	want := []addr{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	if len(writes) != len(want) {
		t.Fatalf("expected %d writes, got %d", len(want), len(writes))
	}
	for i, w := range want {
		if writes[i] != w {
			t.Errorf("write %d: got %+v, want %+v", i, writes[i], w)
		}
	}
}

func TestGradeSessionSkipsFailures(t *testing.T) {
	sess := &model.Session{
		SessionID: "session 1",
		Question: model.Question{
			Expectations: []model.Expectation{{Text: "e1"}, {Text: "e2"}},
		},
		UserResponses: []model.UserResponse{
			{Text: "answer1", ExpectationScores: make([]model.ExpectationScore, 2)},
		},
	}

	var writes int
	gradeSessionWith(sess,
		func(ai, ei int) (string, error) {
			if ei == 0 {
				return "", context.DeadlineExceeded
			}
			return "Bad", nil
		},
		func(_ string, _, _ int, _ string) (*model.Session, error) {
			writes++
			return sess, nil
		})

	if writes != 1 {
		t.Errorf("expected 1 write after 1 failure, got %d", writes)
	}
}
