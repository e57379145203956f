package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/armand124/MedicPlannerAI/internal/redis"
	"github.com/armand124/MedicPlannerAI/internal/schedule"
)

var (
	// ErrCalendarUnavailable marks a storage read or write that failed or
	// timed out; the caller may retry later.
	ErrCalendarUnavailable = errors.New("doctor calendar unavailable")

	// ErrNoSlotAvailable means the scheduling horizon holds no free slot.
	ErrNoSlotAvailable = errors.New("no free slot in the scheduling horizon")

	// ErrSlotTaken means the commit lost a race to a concurrent booking; the
	// whole booking call is safe to retry immediately.
	ErrSlotTaken = errors.New("slot was claimed by a concurrent booking")

	// ErrNotPermitted marks a cancellation by someone who is neither the
	// doctor nor the patient, or of an appointment that is not upcoming.
	ErrNotPermitted = errors.New("requester may not cancel this appointment")
)

// Coordinator arbitrates bookings against a doctor's calendar. Each call
// re-reads the calendar and recomputes the free-slot sequence; no scheduling
// state survives between calls.
type Coordinator struct {
	store          CalendarStore
	locker         redisclient.Locker
	log            *zap.Logger
	storageTimeout time.Duration
	clock          func() time.Time
}

func NewCoordinator(store CalendarStore, locker redisclient.Locker, log *zap.Logger, storageTimeout time.Duration) *Coordinator {
	return &Coordinator{
		store:          store,
		locker:         locker,
		log:            log,
		storageTimeout: storageTimeout,
		clock:          time.Now,
	}
}

// Book selects a free slot for the doctor according to the requested urgency
// and commits it. The commit is conditional on no concurrent booking having
// claimed the same (doctor, slot) pair; losing that race surfaces as
// ErrSlotTaken and a retry will naturally land on a different slot.
func (c *Coordinator) Book(ctx context.Context, doctorID, patientID uuid.UUID, priority schedule.Priority) (*Appointment, error) {
	now := c.clock()

	readCtx, cancelRead := context.WithTimeout(ctx, c.storageTimeout)
	booked, err := c.store.ListUpcoming(readCtx, doctorID)
	cancelRead()
	if err != nil {
		return nil, fmt.Errorf("%w: list upcoming: %w", ErrCalendarUnavailable, err)
	}

	free := schedule.Enumerate(booked, now)
	slot, ok := schedule.Pick(free, priority)
	if !ok {
		return nil, ErrNoSlotAvailable
	}

	var created *Appointment
	err = c.locker.WithSlotLock(ctx, doctorID, slot, func(lockCtx context.Context) error {
		commitCtx, cancelCommit := context.WithTimeout(lockCtx, c.storageTimeout)
		defer cancelCommit()

		appt, committed, err := c.store.TryCommit(commitCtx, doctorID, patientID, slot)
		if err != nil {
			return fmt.Errorf("%w: commit slot: %w", ErrCalendarUnavailable, err)
		}
		if !committed {
			return ErrSlotTaken
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: slot is being booked", ErrSlotTaken)
		}
		return nil, err
	}

	c.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.String("patient_id", patientID.String()),
		zap.Time("starts_at", created.StartsAt),
		zap.String("priority", priority.String()),
		zap.Int("free_slots", len(free)),
	)

	return created, nil
}

// Cancel transitions an upcoming appointment to cancelled. Only the doctor or
// the patient on the appointment may cancel, and only while it is upcoming;
// any other attempt is a policy violation, not a storage error.
func (c *Coordinator) Cancel(ctx context.Context, appointmentID, requesterID uuid.UUID) error {
	opCtx, cancel := context.WithTimeout(ctx, c.storageTimeout)
	defer cancel()

	appt, err := c.store.GetAppointmentByID(opCtx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("%w: load appointment: %w", ErrCalendarUnavailable, err)
	}

	if requesterID != appt.DoctorID && requesterID != appt.PatientID {
		return ErrNotPermitted
	}
	if appt.Status != StatusUpcoming {
		return fmt.Errorf("%w: appointment is %s", ErrNotPermitted, appt.Status)
	}

	ok, err := c.store.MarkCancelled(opCtx, appointmentID)
	if err != nil {
		return fmt.Errorf("%w: mark cancelled: %w", ErrCalendarUnavailable, err)
	}
	if !ok {
		// Raced with another cancellation between the read and the update.
		return fmt.Errorf("%w: appointment is no longer upcoming", ErrNotPermitted)
	}

	c.log.Info("appointment cancelled",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("requester_id", requesterID.String()),
	)

	return nil
}

// FreeSlots returns the current free-slot sequence for a doctor, for the
// read-only availability preview. The result is ephemeral and may be stale
// by the time a booking lands.
func (c *Coordinator) FreeSlots(ctx context.Context, doctorID uuid.UUID) ([]time.Time, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.storageTimeout)
	defer cancel()

	booked, err := c.store.ListUpcoming(opCtx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: list upcoming: %w", ErrCalendarUnavailable, err)
	}

	return schedule.Enumerate(booked, c.clock()), nil
}

// DoctorAgenda lists every appointment, upcoming or cancelled, on a doctor's
// calendar.
func (c *Coordinator) DoctorAgenda(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.storageTimeout)
	defer cancel()

	appts, err := c.store.ListByDoctor(opCtx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: list by doctor: %w", ErrCalendarUnavailable, err)
	}
	return appts, nil
}

// PatientAgenda lists every appointment booked by a patient.
func (c *Coordinator) PatientAgenda(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.storageTimeout)
	defer cancel()

	appts, err := c.store.ListByPatient(opCtx, patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: list by patient: %w", ErrCalendarUnavailable, err)
	}
	return appts, nil
}
