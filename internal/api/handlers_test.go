package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/armand124/MedicPlannerAI/internal/appointment"
	"github.com/armand124/MedicPlannerAI/internal/schedule"
)

// memStore is a minimal in-memory CalendarStore for boundary tests.
type memStore struct {
	mu      sync.Mutex
	appts   map[uuid.UUID]*appointment.Appointment
	listErr error
}

func newMemStore() *memStore {
	return &memStore{appts: make(map[uuid.UUID]*appointment.Appointment)}
}

func (m *memStore) ListUpcoming(_ context.Context, doctorID uuid.UUID) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var booked []time.Time
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == appointment.StatusUpcoming {
			booked = append(booked, a.StartsAt)
		}
	}
	return booked, nil
}

func (m *memStore) TryCommit(_ context.Context, doctorID, patientID uuid.UUID, startsAt time.Time) (*appointment.Appointment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := schedule.NormalizeSlot(startsAt)
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == appointment.StatusUpcoming && a.StartsAt.Equal(slot) {
			return nil, false, nil
		}
	}
	appt := &appointment.Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		StartsAt:  slot,
		Status:    appointment.StatusUpcoming,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.appts[appt.ID] = appt
	return appt, true, nil
}

func (m *memStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) MarkCancelled(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != appointment.StatusUpcoming {
		return false, nil
	}
	a.Status = appointment.StatusCancelled
	return true, nil
}

func (m *memStore) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestServer(t *testing.T, store appointment.CalendarStore) *httptest.Server {
	t.Helper()
	coord := appointment.NewCoordinator(store, passLocker{}, zap.NewNop(), time.Second)
	router := NewRouter(RouterConfig{
		Coordinator: coord,
		Logger:      zap.NewNop(),
		Env:         "test",
		Version:     "test",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postBooking(t *testing.T, srv *httptest.Server, doctorID, patientID, priority string) *http.Response {
	t.Helper()
	body, err := json.Marshal(BookingRequest{DoctorID: doctorID, Priority: priority})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/planner", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerPatientID, patientID)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestPlanBookingReturnsCommittedDate(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	resp := postBooking(t, srv, uuid.New().String(), uuid.New().String(), "high")
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got BookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEqual(t, uuid.Nil, got.AppointmentID)
	assert.Equal(t, "upcoming", got.Status)

	when, err := time.Parse(DateLayout, got.Date)
	require.NoError(t, err)
	assert.Equal(t, 0, when.Minute())
}

func TestPlanBookingRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	tests := []struct {
		name     string
		doctorID string
		patient  string
		priority string
	}{
		{"bad doctor id", "not-a-uuid", uuid.New().String(), "high"},
		{"bad priority", uuid.New().String(), uuid.New().String(), "urgent"},
		{"missing patient header", uuid.New().String(), "", "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postBooking(t, srv, tt.doctorID, tt.patient, tt.priority)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPlanBookingStorageFailureIs503(t *testing.T) {
	store := newMemStore()
	store.listErr = fmt.Errorf("connection reset")
	srv := newTestServer(t, store)

	resp := postBooking(t, srv, uuid.New().String(), uuid.New().String(), "medium")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "calendar_unavailable", got.Error)
}

func TestCancelFlowAndPolicy(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store)

	patientID := uuid.New()
	resp := postBooking(t, srv, uuid.New().String(), patientID.String(), "high")
	var booked BookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&booked))
	resp.Body.Close()

	cancel := func(requester string) *http.Response {
		req, err := http.NewRequest(http.MethodPost,
			fmt.Sprintf("%s/appointments/%s/cancel", srv.URL, booked.AppointmentID), nil)
		require.NoError(t, err)
		req.Header.Set(headerRequesterID, requester)
		r, err := srv.Client().Do(req)
		require.NoError(t, err)
		return r
	}

	// A stranger may not cancel.
	r := cancel(uuid.New().String())
	assert.Equal(t, http.StatusForbidden, r.StatusCode)
	r.Body.Close()

	// The patient may.
	r = cancel(patientID.String())
	assert.Equal(t, http.StatusOK, r.StatusCode)
	r.Body.Close()

	// A second cancellation is a policy violation.
	r = cancel(patientID.String())
	assert.Equal(t, http.StatusForbidden, r.StatusCode)
	r.Body.Close()
}

func TestCancelUnknownAppointmentIs404(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/appointments/%s/cancel", srv.URL, uuid.New()), nil)
	require.NoError(t, err)
	req.Header.Set(headerRequesterID, uuid.New().String())

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDoctorSlotsPreview(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store)
	doctorID := uuid.New()

	resp, err := srv.Client().Get(fmt.Sprintf("%s/doctors/%s/slots", srv.URL, doctorID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SlotListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, doctorID, got.DoctorID)
	assert.NotEmpty(t, got.Slots)
	for _, s := range got.Slots {
		_, err := time.Parse(DateLayout, s)
		assert.NoError(t, err)
	}
}

func TestAgendaEndpoints(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store)

	doctorID := uuid.New()
	patientID := uuid.New()

	resp := postBooking(t, srv, doctorID.String(), patientID.String(), "medium")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	for _, path := range []string{
		fmt.Sprintf("/doctors/%s/appointments", doctorID),
		fmt.Sprintf("/patients/%s/appointments", patientID),
	} {
		r, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		var got AppointmentListResponse
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		r.Body.Close()
		require.Len(t, got.Appointments, 1, "path %s", path)
		assert.Equal(t, doctorID, got.Appointments[0].DoctorID)
		assert.Equal(t, patientID, got.Appointments[0].PatientID)
	}
}
