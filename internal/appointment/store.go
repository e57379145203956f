package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// CalendarStore is the narrow persistence surface the booking coordinator
// needs. TryCommit must be atomic with respect to concurrent commits for the
// same (doctor, slot) pair; the Postgres implementation leans on a partial
// unique index rather than read-then-write.
type CalendarStore interface {
	// ListUpcoming returns the starts_at timestamps of every upcoming
	// appointment for one doctor.
	ListUpcoming(ctx context.Context, doctorID uuid.UUID) ([]time.Time, error)

	// TryCommit inserts an upcoming appointment for (doctor, slot) unless one
	// already exists. committed is false when the slot was lost to a
	// concurrent booking; that is not an error.
	TryCommit(ctx context.Context, doctorID, patientID uuid.UUID, startsAt time.Time) (appt *Appointment, committed bool, err error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// MarkCancelled flips an appointment to cancelled, conditioned on it
	// still being upcoming. ok is false when the condition did not hold.
	MarkCancelled(ctx context.Context, id uuid.UUID) (ok bool, err error)

	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
}
