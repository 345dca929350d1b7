package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestFail_MapsDomainErrors(t *testing.T) {
	t.Parallel()

	h := NewHandlers(nil, nil, nil, nil, nil, nil)

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: lesson_id is required", usecase.ErrValidation), http.StatusBadRequest},
		{domainOutbox.ErrInvalidStatus, http.StatusBadRequest},
		{fmt.Errorf("review: %w", absence.ErrNotFound), http.StatusNotFound},
		{notification.ErrNotFound, http.StatusNotFound},
		{domainOutbox.ErrEventNotFound, http.StatusNotFound},
		{fmt.Errorf("replay: %w", domainOutbox.ErrNotReplayable), http.StatusConflict},
		{absence.ErrInvalidTransition, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestFail_HidesInternalErrors(t *testing.T) {
	t.Parallel()

	h := NewHandlers(nil, nil, nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	h.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=secret"))

	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestParseLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		limit int
		ok    bool
	}{
		{"", 0, true},
		{"?limit=25", 25, true},
		{"?limit=500", 500, true},
		{"?limit=0", 0, false},
		{"?limit=501", 0, false},
		{"?limit=abc", 0, false},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		limit, ok := parseLimit(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		assert.Equal(t, tt.ok, ok, tt.query)
		assert.Equal(t, tt.limit, limit, tt.query)
		if !ok {
			assert.Equal(t, http.StatusBadRequest, rec.Code, tt.query)
		}
	}
}

func TestParseEventID(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		if id, ok := parseEventID(w, r); ok {
			writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
		}
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/6f1c2a8e-93a4-4c1e-b1d7-0c1f1f0d5a11", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"6f1c2a8e-93a4-4c1e-b1d7-0c1f1f0d5a11"}`, rec.Body.String())
}
