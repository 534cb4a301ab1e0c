package domain

import "time"

// MitraStatus is the roster lifecycle status. Uploads may carry values
// outside this list; they are kept as-is.
type MitraStatus string

const (
	StatusActive              MitraStatus = "Active"
	StatusNew                 MitraStatus = "New"
	StatusDriverTraining      MitraStatus = "Driver Training"
	StatusRegistered          MitraStatus = "Registered"
	StatusInactive            MitraStatus = "Inactive"
	StatusBanned              MitraStatus = "Banned"
	StatusInvalidDocuments    MitraStatus = "Invalid Documents"
	StatusPendingVerification MitraStatus = "Pending Verification"
	StatusUnknown             MitraStatus = "Unknown"
)

// DashboardStatuses is the fixed status order of the roster dashboard.
var DashboardStatuses = []MitraStatus{
	StatusActive,
	StatusNew,
	StatusDriverTraining,
	StatusRegistered,
	StatusInactive,
	StatusBanned,
	StatusInvalidDocuments,
	StatusPendingVerification,
}

// Mitra is a roster entry for a delivery partner.
type Mitra struct {
	ID              string     `json:"id" db:"id"`
	FullName        string     `json:"full_name" db:"full_name"`
	PhoneNumber     string     `json:"phone_number" db:"phone_number"`
	Status          string     `json:"status" db:"status"`
	City            string     `json:"city" db:"city"`
	RegisteredAtRaw string     `json:"registered_at_raw" db:"registered_at_raw"`
	RegisteredAt    *time.Time `json:"registered_at,omitempty" db:"registered_at"`
	Attributes      Attributes `json:"attributes,omitempty" db:"attributes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// CohortDate is the date a roster entry counts from: its registration date,
// or the row creation time when registration could not be parsed.
func (m Mitra) CohortDate() (time.Time, bool) {
	if m.RegisteredAt != nil {
		return *m.RegisteredAt, true
	}
	if !m.CreatedAt.IsZero() {
		return m.CreatedAt, true
	}
	return time.Time{}, false
}

// MitraUpdate carries the editable roster fields. Nil means unchanged.
type MitraUpdate struct {
	FullName     *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	PhoneNumber  *string `json:"phone_number" validate:"omitempty,min=1,max=32"`
	Status       *string `json:"status" validate:"omitempty,max=64"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	RegisteredAt *string `json:"registered_at" validate:"omitempty,max=64"`
}

// StatusCount is one bar of the roster dashboard histogram.
type StatusCount struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PhoneMessage is one entry of the outbound phone/message list.
type PhoneMessage struct {
	ID         string     `json:"id" db:"id"`
	Phone      string     `json:"phone" db:"phone"`
	Message    string     `json:"message" db:"message"`
	Attributes Attributes `json:"attributes,omitempty" db:"attributes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
