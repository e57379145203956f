package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/armand124/MedicPlannerAI/internal/schedule"
)

// pgQuerier is the subset of pgxpool.Pool the store uses; tests substitute a
// pgxmock pool.
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgCalendarStore struct {
	db pgQuerier
}

func NewPgCalendarStore(pool *pgxpool.Pool) *PgCalendarStore {
	return &PgCalendarStore{db: pool}
}

// NewPgCalendarStoreWithQuerier allows injecting mocks for tests.
func NewPgCalendarStoreWithQuerier(db pgQuerier) *PgCalendarStore {
	return &PgCalendarStore{db: db}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.StartsAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (s *PgCalendarStore) ListUpcoming(ctx context.Context, doctorID uuid.UUID) ([]time.Time, error) {
	rows, err := s.db.Query(ctx, `
		SELECT starts_at
		FROM appointments
		WHERE doctor_id = $1 AND status = 'upcoming'
		ORDER BY starts_at
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var booked []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		booked = append(booked, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return booked, nil
}

// TryCommit relies on the partial unique index on (doctor_id, starts_at)
// WHERE status = 'upcoming': when a concurrent booking already claimed the
// slot the insert is a no-op and no row comes back.
func (s *PgCalendarStore) TryCommit(ctx context.Context, doctorID, patientID uuid.UUID, startsAt time.Time) (*Appointment, bool, error) {
	id := uuid.New()

	row := s.db.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, starts_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'upcoming', now(), now())
		ON CONFLICT (doctor_id, starts_at) WHERE status = 'upcoming' DO NOTHING
		RETURNING id, doctor_id, patient_id, starts_at, status, created_at, updated_at
	`, id, doctorID, patientID, schedule.NormalizeSlot(startsAt))

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return appt, true, nil
}

func (s *PgCalendarStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, starts_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgCalendarStore) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'upcoming'
	`, id)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (s *PgCalendarStore) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return s.listAppointments(ctx, `
		SELECT id, doctor_id, patient_id, starts_at, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY starts_at
	`, doctorID)
}

func (s *PgCalendarStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.listAppointments(ctx, `
		SELECT id, doctor_id, patient_id, starts_at, status, created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY starts_at
	`, patientID)
}

func (s *PgCalendarStore) listAppointments(ctx context.Context, query string, arg any) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
