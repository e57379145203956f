package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/armand124/MedicPlannerAI/internal/appointment"
	"github.com/armand124/MedicPlannerAI/internal/schedule"
)

// Requester identity headers are populated by the upstream auth layer; the
// scheduling core trusts them as pre-validated.
const (
	headerPatientID   = "X-Patient-ID"
	headerRequesterID = "X-Requester-ID"
)

func planBookingHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		priority, err := schedule.ParsePriority(req.Priority)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_priority", "priority must be one of low, medium, high")
			return
		}

		patientID, err := uuid.Parse(r.Header.Get(headerPatientID))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", headerPatientID+" header must be a valid UUID")
			return
		}

		appt, err := coord.Book(r.Context(), doctorID, patientID, priority)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			AppointmentID: appt.ID,
			DoctorID:      appt.DoctorID,
			PatientID:     appt.PatientID,
			Date:          appt.StartsAt.Format(DateLayout),
			Status:        string(appt.Status),
		})
	}
}

func cancelAppointmentHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		requesterID, err := uuid.Parse(r.Header.Get(headerRequesterID))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_requester_id", headerRequesterID+" header must be a valid UUID")
			return
		}

		if err := coord.Cancel(r.Context(), appointmentID, requesterID); err != nil {
			handleCancelError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CancelResponse{Message: "appointment cancelled"})
	}
}

func doctorSlotsHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		slots, err := coord.FreeSlots(r.Context(), doctorID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := SlotListResponse{DoctorID: doctorID, Slots: make([]string, 0, len(slots))}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, s.Format(DateLayout))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorAppointmentsHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		appts, err := coord.DoctorAgenda(r.Context(), doctorID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeAppointmentList(w, appts)
	}
}

func patientAppointmentsHandler(coord *appointment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		appts, err := coord.PatientAgenda(r.Context(), patientID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeAppointmentList(w, appts)
	}
}

func writeAppointmentList(w http.ResponseWriter, appts []appointment.Appointment) {
	resp := AppointmentListResponse{Appointments: make([]AppointmentView, 0, len(appts))}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, newAppointmentView(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrNoSlotAvailable):
		writeError(w, http.StatusUnprocessableEntity, "no_slot_available", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_conflict", "slot was claimed concurrently, please retry")
	case errors.Is(err, appointment.ErrCalendarUnavailable):
		writeError(w, http.StatusServiceUnavailable, "calendar_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotPermitted):
		writeError(w, http.StatusForbidden, "cancellation_not_permitted", err.Error())
	case errors.Is(err, appointment.ErrCalendarUnavailable):
		writeError(w, http.StatusServiceUnavailable, "calendar_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
