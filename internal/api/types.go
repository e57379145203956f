package api

import (
	"github.com/google/uuid"

	"github.com/armand124/MedicPlannerAI/internal/appointment"
)

// DateLayout is the wire format for appointment dates.
const DateLayout = "2006-01-02 15:04"

type BookingRequest struct {
	DoctorID string `json:"doctor_id"`
	Priority string `json:"priority"`
}

type BookingResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Date          string    `json:"date"`
	Status        string    `json:"status"`
}

type AppointmentView struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
}

func newAppointmentView(a appointment.Appointment) AppointmentView {
	return AppointmentView{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      a.StartsAt.Format(DateLayout),
		Status:    string(a.Status),
	}
}

type AppointmentListResponse struct {
	Appointments []AppointmentView `json:"appointments"`
}

type SlotListResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Slots    []string  `json:"slots"`
}

type CancelResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
