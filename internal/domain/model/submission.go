package model

import "time"

type Submission struct {
	ID             int64     `json:"submission_id"`
	ContestID      string    `json:"contest_id"`
	TaskID         string    `json:"task_id"`
	UserID         string    `json:"user_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
	LanguageName   string    `json:"language_name"`
	Score          float64   `json:"score"`
	CodeSize       int       `json:"code_size"`
	Status         string    `json:"status"`                    // judge verdict, e.g. "AC", "WA", "WJ"
	ExecutionTime  *int      `json:"execution_time,omitempty"`  // ms, nil when the judge reported none
	MemoryConsumed *int      `json:"memory_consumed,omitempty"` // KB, nil when the judge reported none
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
