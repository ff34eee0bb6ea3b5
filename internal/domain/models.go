package domain

import "time"

// Categories is the fixed set of personality colors in their canonical
// enumeration order. Scoring tie-breaks resolve to the earlier entry, so this
// order must never be reshuffled once submissions exist.
var Categories = []string{"red", "blue", "yellow", "green", "purple", "orange", "teal", "pink"}

// Submission is one completed quiz attempt, scored and recorded.
type Submission struct {
	SessionID      string         `json:"sessionId"`
	Name           string         `json:"name"`
	Age            int            `json:"age,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	RawAnswers     []string       `json:"rawAnswers"`
	ScoreBreakdown map[string]int `json:"scoreBreakdown"`
	AssignedColor  string         `json:"assignedColor"`
}

// SubmissionInput is what a client sends to create a submission. SessionID is
// optional; when set it becomes the dedup key and the store upserts on it.
type SubmissionInput struct {
	SessionID string   `json:"sessionId,omitempty"`
	Name      string   `json:"name"`
	Age       int      `json:"age,omitempty"`
	Answers   []string `json:"answers"`
}

// Option is one selectable answer carrying a weight per color. Colors absent
// from the map contribute zero.
type Option struct {
	Text    string         `json:"optionText"`
	Weights map[string]int `json:"weights"`
}

// Question is one catalog entry with its ordered options.
type Question struct {
	Text    string   `json:"questionText"`
	Options []Option `json:"options"`
}

// Catalog is the versioned question set. Agent and central must score against
// identical catalog data or the same answers can produce different winners.
type Catalog struct {
	Version   string     `json:"version"`
	Questions []Question `json:"questions"`
}

// ColorProfile is the display-side description of an assigned color.
type ColorProfile struct {
	ColorName       string `json:"colorName"`
	HexCode         string `json:"hexCode"`
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	FullDescription string `json:"fullDescription"`
}

// MergedHistory is the read-side union of local and server submissions,
// newest first. The counts say how many of Items came from each source.
type MergedHistory struct {
	Items       []Submission `json:"items"`
	ServerCount int          `json:"serverCount"`
	LocalCount  int          `json:"localCount"`
}
