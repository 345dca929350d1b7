package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/attendance"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxListLimit = 500

type Handlers struct {
	markAttendanceUC *usecase.MarkAttendance
	submitNoticeUC   *usecase.SubmitAbsenceNotice
	reviewNoticeUC   *usecase.ReviewAbsenceNotice
	notificationsUC  *usecase.Notifications
	outboxAdminUC    *usecase.OutboxAdmin
	logger           *zap.Logger
}

func NewHandlers(
	markAttendanceUC *usecase.MarkAttendance,
	submitNoticeUC *usecase.SubmitAbsenceNotice,
	reviewNoticeUC *usecase.ReviewAbsenceNotice,
	notificationsUC *usecase.Notifications,
	outboxAdminUC *usecase.OutboxAdmin,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		markAttendanceUC: markAttendanceUC,
		submitNoticeUC:   submitNoticeUC,
		reviewNoticeUC:   reviewNoticeUC,
		notificationsUC:  notificationsUC,
		outboxAdminUC:    outboxAdminUC,
		logger:           logger,
	}
}

func (h *Handlers) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req usecase.MarkAttendanceParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.markAttendanceUC.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) SubmitAbsenceNotice(w http.ResponseWriter, r *http.Request) {
	var req usecase.SubmitAbsenceNoticeParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	notice, err := h.submitNoticeUC.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, notice)
}

func (h *Handlers) ReviewAbsenceNotice(w http.ResponseWriter, r *http.Request) {
	var req usecase.ReviewAbsenceNoticeParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.NoticeID = chi.URLParam(r, "id")

	notice, err := h.reviewNoticeUC.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, notice)
}

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	items, err := h.notificationsUC.List(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *Handlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationsUC.UnreadCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationsUC.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *Handlers) ListOutboxEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domainOutbox.ListFilter{
		EventType:     q.Get("event_type"),
		CorrelationID: q.Get("correlation_id"),
	}

	if raw := q.Get("status"); raw != "" {
		status, err := domainOutbox.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	filter.Limit = limit

	events, err := h.outboxAdminUC.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) GetOutboxEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	e, err := h.outboxAdminUC.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) ReplayOutboxEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	e, err := h.outboxAdminUC.Replay(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, e)
}

func (h *Handlers) GetOutboxWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.outboxAdminUC.Workflow(r.Context(), chi.URLParam(r, "correlationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, wf)
}

func (h *Handlers) OutboxStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.outboxAdminUC.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// fail maps domain errors to HTTP statuses; anything unknown is a 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, domainOutbox.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domainOutbox.ErrEventNotFound),
		errors.Is(err, absence.ErrNotFound),
		errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, notification.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domainOutbox.ErrNotReplayable),
		errors.Is(err, absence.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseEventID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
