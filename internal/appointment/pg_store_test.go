package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apptColumns = []string{"id", "doctor_id", "patient_id", "starts_at", "status", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PgCalendarStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgCalendarStoreWithQuerier(mock), mock
}

func TestListUpcomingReturnsBookedTimestamps(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()

	t1 := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 2, 10, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT starts_at").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{"starts_at"}).AddRow(t1).AddRow(t2))

	booked, err := store.ListUpcoming(context.Background(), doctorID)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{t1, t2}, booked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryCommitInsertsNormalizedSlot(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	patientID := uuid.New()

	slot := time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), doctorID, patientID, slot).
		WillReturnRows(pgxmock.NewRows(apptColumns).
			AddRow(uuid.New(), doctorID, patientID, slot, StatusUpcoming, now, now))

	// Sub-hour precision in the input must not leak into the row.
	appt, committed, err := store.TryCommit(context.Background(), doctorID, patientID, slot.Add(17*time.Minute))
	require.NoError(t, err)
	require.True(t, committed)
	assert.Equal(t, slot, appt.StartsAt)
	assert.Equal(t, StatusUpcoming, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryCommitLosesRaceWithoutError(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	slot := time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC)

	// ON CONFLICT DO NOTHING returns no row when the slot is already claimed.
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), doctorID, pgxmock.AnyArg(), slot).
		WillReturnRows(pgxmock.NewRows(apptColumns))

	appt, committed, err := store.TryCommit(context.Background(), doctorID, uuid.New(), slot)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Nil(t, appt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, doctor_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(apptColumns))

	_, err := store.GetAppointmentByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMarkCancelledConditionalOnUpcoming(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.MarkCancelled(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already cancelled: the guarded update touches no row.
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err = store.MarkCancelled(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByDoctorScansAllStatuses(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT id, doctor_id").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows(apptColumns).
			AddRow(uuid.New(), doctorID, uuid.New(), now.Add(time.Hour), StatusUpcoming, now, now).
			AddRow(uuid.New(), doctorID, uuid.New(), now.Add(2*time.Hour), StatusCancelled, now, now))

	appts, err := store.ListByDoctor(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, StatusUpcoming, appts[0].Status)
	assert.Equal(t, StatusCancelled, appts[1].Status)
}
