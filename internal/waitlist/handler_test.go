package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/notify"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/observability/metrics"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *Store, *notify.StubEmailSender) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "waitlist.csv"))
	emails := notify.NewStubEmailSender(logging.Default())
	m := metrics.NewBookingMetrics(prometheus.NewRegistry())
	return NewHandler(store, emails, m, logging.Default()), store, emails
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestJoinSendsAcknowledgment(t *testing.T) {
	handler, store, emails := newTestHandler(t)

	body, _ := json.Marshal(Entry{
		PatientName:    "Ana Silva",
		PatientEmail:   "ana@example.com",
		PreferredDates: []string{"2026-09-15"},
	})
	w := httptest.NewRecorder()
	handler.Join(w, httptest.NewRequest(http.MethodPost, "/api/waitlist", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var created Entry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.WaitlistID)
	assert.Equal(t, StatusWaiting, created.Status)

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.Len(t, emails.Sent, 1)
	assert.Equal(t, "ana@example.com", emails.Sent[0].To)
}

func TestJoinRejectsMissingEmail(t *testing.T) {
	handler, _, emails := newTestHandler(t)

	body, _ := json.Marshal(Entry{PatientName: "No Email"})
	w := httptest.NewRecorder()
	handler.Join(w, httptest.NewRequest(http.MethodPost, "/api/waitlist", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, emails.Sent)
}

func TestUpdateStatus(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	added, err := store.Add(Entry{PatientName: "Ana", PatientEmail: "ana@example.com"})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"status": StatusContacted})
	req := httptest.NewRequest(http.MethodPatch, "/admin/waitlist/"+added.WaitlistID, bytes.NewReader(body))
	req = withURLParam(req, "waitlistID", added.WaitlistID)
	w := httptest.NewRecorder()
	handler.UpdateStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var updated Entry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, StatusContacted, updated.Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	added, err := store.Add(Entry{PatientName: "Ana", PatientEmail: "ana@example.com"})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"status": "vip"})
	req := httptest.NewRequest(http.MethodPatch, "/admin/waitlist/"+added.WaitlistID, bytes.NewReader(body))
	req = withURLParam(req, "waitlistID", added.WaitlistID)
	w := httptest.NewRecorder()
	handler.UpdateStatus(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteNotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/admin/waitlist/missing", nil)
	req = withURLParam(req, "waitlistID", "missing")
	w := httptest.NewRecorder()
	handler.Delete(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
