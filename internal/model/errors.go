package model

import "errors"

// Request-level failure kinds. Engines wrap these with context via
// fmt.Errorf("...: %w", err); the transport layer matches with errors.Is.
var (
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrSessionNotFound  = errors.New("session not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrForbidden        = errors.New("user does not have permission to edit this lesson")
	ErrAlreadyDeleted   = errors.New("lesson was already deleted")
	// ErrStoreUnavailable wraps collaborator I/O failures. It is the only
	// kind a caller may reasonably retry; nothing is retried here.
	ErrStoreUnavailable = errors.New("store unavailable")
)
