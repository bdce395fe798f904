package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tutorstack/gradebook/internal/classifier"
	"github.com/tutorstack/gradebook/internal/grading"
	"github.com/tutorstack/gradebook/internal/model"
	"github.com/tutorstack/gradebook/internal/pagination"
	"github.com/tutorstack/gradebook/internal/store"
	"github.com/tutorstack/gradebook/internal/tombstone"
)

// Handler holds shared dependencies for HTTP handlers. It is the thin
// resolver layer over the engines: request-shape validation and error
// translation live here, the invariants live in the engines.
type Handler struct {
	store      *store.Store
	classifier *classifier.Client // nil when no classifier is configured
	grader     *grading.Engine
	lessons    *tombstone.Manager
}

// New creates a new Handler.
func New(s *store.Store, c *classifier.Client) *Handler {
	return &Handler{
		store:      s,
		classifier: c,
		grader:     grading.New(s),
		lessons:    tombstone.New(s, tombstone.AuthorizerFunc(userCanEdit)),
	}
}

// userCanEdit is the edit-permission policy: admins may edit any lesson,
// graders only lessons they created.
func userCanEdit(u *model.User, l *model.Lesson) bool {
	if u == nil {
		return false
	}
	return u.Role == model.UserRoleAdmin || l.CreatedBy == u.ID
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/logout", h.handleLogout)

		r.Get("/sessions", h.handleListSessions)
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Post("/sessions/{sessionID}/grade", h.handleSetGrade)

		r.Get("/lessons", h.handleListLessons)
		r.Post("/lessons", h.handleCreateLesson)
		r.Delete("/lessons/{lessonID}", h.handleDeleteLesson)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
		})
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	cur, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := pagination.Paginate(r.Context(), h.store.Sessions(), cur, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.store.FindSessionByID(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess == nil {
		writeError(w, model.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.Session
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.LessonID == "" {
		writeError(w, model.ErrMissingParameter)
		return
	}

	sess, err := h.store.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.classifier != nil {
		h.classifier.GradeSession(r.Context(), sess, h.store.SetClassifierGrade)
		if graded, err := h.store.FindSessionByID(r.Context(), sess.SessionID); err == nil && graded != nil {
			sess = graded
		}
	}
	writeJSON(w, http.StatusCreated, sess)
}

type setGradeRequest struct {
	UserAnswerIndex      *int   `json:"userAnswerIndex"`
	UserExpectationIndex *int   `json:"userExpectationIndex"`
	Grade                string `json:"grade"`
}

func (h *Handler) handleSetGrade(w http.ResponseWriter, r *http.Request) {
	var req setGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserAnswerIndex == nil || req.UserExpectationIndex == nil {
		writeError(w, model.ErrMissingParameter)
		return
	}

	sess, err := h.grader.SetGrade(r.Context(), chi.URLParam(r, "sessionID"),
		*req.UserAnswerIndex, *req.UserExpectationIndex, req.Grade)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	cur, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := pagination.Paginate(r.Context(), h.store.Lessons(), cur, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req model.Lesson
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if user := model.UserFromContext(r.Context()); user != nil {
		req.CreatedBy = user.ID
	}
	lesson, err := h.store.CreateLesson(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lesson)
}

func (h *Handler) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	lesson, err := h.lessons.DeleteLesson(r.Context(), chi.URLParam(r, "lessonID"), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// pageParams extracts cursor and limit query parameters. An absent or
// zero limit means the engine's default page size.
func pageParams(r *http.Request) (string, int, error) {
	cur := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return cur, 0, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return "", 0, fmt.Errorf("invalid limit %q: %w", limitStr, model.ErrMissingParameter)
	}
	return cur, limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrMissingParameter),
		errors.Is(err, model.ErrInvalidCursor),
		errors.Is(err, model.ErrIndexOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrLessonNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyDeleted):
		status = http.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
