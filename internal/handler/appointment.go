package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/jx"

	"github.com/glowline/commerce/internal/domain/appointment"
)

type bookAppointmentReq struct {
	UserID    string `json:"userId" validate:"required"`
	ServiceID string `json:"serviceId" validate:"required"`
	StylistID string `json:"stylistId"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bookAppointmentReq
	if err := h.bind(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.appointments.Book(ctx, appointment.BookRequest{
		ServiceID:    req.ServiceID,
		StylistID:    req.StylistID,
		UserID:       req.UserID,
		Date:         date,
		StartMinutes: start,
	})
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, func(e *jx.Encoder) {
		encodeAppointment(e, appt)
	})
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appt, err := h.appointments.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		encodeAppointment(e, appt)
	})
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, appointment.StatusCancelled)
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, appointment.StatusConfirmed)
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, appointment.StatusCompleted)
}

func (h *Handler) transitionAppointment(w http.ResponseWriter, r *http.Request, status appointment.Status) {
	ctx := r.Context()

	appt, err := h.appointments.Transition(ctx, r.PathValue("id"), status)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		encodeAppointment(e, appt)
	})
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	services, err := h.services.List(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, s := range services {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(s.ID)
			e.FieldStart("name")
			e.Str(s.Name)
			e.FieldStart("durationMinutes")
			e.Int(s.DurationMinutes)
			e.FieldStart("price")
			money(e, s.Price)
			e.FieldStart("active")
			e.Bool(s.Active)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

func encodeAppointment(e *jx.Encoder, a *appointment.Appointment) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.ID)
	e.FieldStart("reference")
	e.Str(a.Reference)
	e.FieldStart("userId")
	e.Str(a.UserID)
	e.FieldStart("serviceId")
	e.Str(a.ServiceID)
	if a.StylistID != "" {
		e.FieldStart("stylistId")
		e.Str(a.StylistID)
	}
	e.FieldStart("date")
	e.Str(a.Date.Format("2006-01-02"))
	e.FieldStart("startTime")
	e.Str(formatClock(a.StartMinutes))
	e.FieldStart("endTime")
	e.Str(formatClock(a.EndMinutes))
	e.FieldStart("status")
	e.Str(string(a.Status))
	e.FieldStart("totalAmount")
	money(e, a.TotalAmount)
	e.FieldStart("createdAt")
	e.Str(a.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

// parseClock converts an HH:MM wall-clock string to minutes from midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
