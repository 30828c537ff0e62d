package status

import "time"

// Status is the stored or effective state of a payment.
type Status string

const (
	Pending   Status = "pending"
	DueNow    Status = "due_now"
	Completed Status = "completed"
	Overdue   Status = "overdue"
)

// All returns every status a payment may be stored with.
func All() []Status {
	return []Status{Pending, DueNow, Completed, Overdue}
}

// Valid reports whether s is one of the enumerated statuses.
func Valid(s Status) bool {
	switch s {
	case Pending, DueNow, Completed, Overdue:
		return true
	}
	return false
}

// Effective derives the status shown to callers from the stored status, the due
// date and today. Completed payments are never overridden, and a zero due date
// leaves the stored status as is. Only the calendar date of due and today is
// compared.
func Effective(stored Status, due, today time.Time) Status {
	if stored == Completed || due.IsZero() {
		return stored
	}

	d, t := calendar(due), calendar(today)
	switch {
	case d.Equal(t):
		return DueNow
	case d.Before(t):
		return Overdue
	}
	return stored
}

func calendar(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
