package model

import "time"

// GradingExport is the top-level JSON structure for grading data export.
type GradingExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Lessons    []LessonExport  `json:"lessons"`
	Orphaned   []SessionExport `json:"orphaned_sessions,omitempty"`
}

// LessonExport holds one lesson and its sessions, tombstoned included.
type LessonExport struct {
	LessonID string          `json:"lesson_id"`
	Name     string          `json:"name"`
	Deleted  bool            `json:"deleted,omitempty"`
	Sessions []SessionExport `json:"sessions"`
}

// SessionExport holds one session's grading data for export.
type SessionExport struct {
	SessionID     string         `json:"session_id"`
	Username      string         `json:"username"`
	Question      Question       `json:"question"`
	UserResponses []UserResponse `json:"user_responses"`
	Deleted       bool           `json:"deleted,omitempty"`
}
