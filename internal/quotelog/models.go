package quotelog

import "time"

// Entry is one durable record of a submission attempt, success or failure.
type Entry struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name,omitempty"`
	Company   string            `json:"company,omitempty"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Service   string            `json:"service,omitempty"`
	Message   string            `json:"message,omitempty"`
	To        string            `json:"to"`
	Timestamp time.Time         `json:"timestamp"`
	Sent      bool              `json:"sent"`
	Info      map[string]string `json:"info,omitempty"`
	Handled   bool              `json:"handled,omitempty"`
	Note      string            `json:"note,omitempty"`
}

// Patch carries the operator-mutable fields of an entry. Nil fields are
// left untouched.
type Patch struct {
	Handled *bool   `json:"handled"`
	Note    *string `json:"note"`
}
