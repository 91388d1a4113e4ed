package model

import "time"

type Contest struct {
	ID         string    `json:"contest_id"`
	Name       string    `json:"contest_name"`
	RatedRange string    `json:"rated_range"` // free-form rating band, e.g. " ~ 1999"
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Running reports whether now falls inside the windows where the judge is
// busiest: the first two hours after start and the hour around the end.
func (c Contest) Running(now time.Time) bool {
	earlyEnd := c.StartAt.Add(2 * time.Hour)
	if c.EndAt.Before(earlyEnd) {
		earlyEnd = c.EndAt
	}
	if now.After(c.StartAt.Add(-time.Hour)) && now.Before(earlyEnd) {
		return true
	}
	return now.After(c.EndAt.Add(-time.Hour)) && now.Before(c.EndAt.Add(20*time.Minute))
}

type Task struct {
	ID        string    `json:"task_id"`
	Name      string    `json:"task_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContestTask places a task inside a contest under a letter such as "A".
type ContestTask struct {
	ContestID string `json:"contest_id"`
	TaskID    string `json:"task_id"`
	Alphabet  string `json:"alphabet"`
}
