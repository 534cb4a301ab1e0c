package domain

import "time"

// Task is one row of the task management export.
type Task struct {
	ID          string     `json:"id" db:"id"`
	User        string     `json:"user" db:"user_name"`
	Project     string     `json:"project" db:"project_name"`
	City        string     `json:"city" db:"city"`
	FinalStatus string     `json:"final_status" db:"final_status"`
	ReplyRecord string     `json:"reply_record" db:"reply_record"`
	DateRaw     string     `json:"date_raw" db:"task_date_raw"`
	Date        *time.Time `json:"date,omitempty" db:"task_date"`
	Attributes  Attributes `json:"attributes,omitempty" db:"attributes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
