package gdpr

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/bookings"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/medcrypt"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/waitlist"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

type fixture struct {
	svc      *Service
	tokens   *patients.Service
	bookings *bookings.Store
	waitlist *waitlist.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := logging.Default()

	enc, err := medcrypt.New("test-secret")
	require.NoError(t, err)
	tokens := patients.NewService(patients.NewStore(filepath.Join(dir, "booking-tokens.csv")), enc, logger)
	bookingStore := bookings.NewStore(filepath.Join(dir, "bookings.csv"))
	waitlistStore := waitlist.NewStore(filepath.Join(dir, "waitlist.csv"))

	svc := NewService(tokens, bookingStore, waitlistStore, filepath.Join(dir, "gdpr-deletion-log.csv"), logger)
	return &fixture{svc: svc, tokens: tokens, bookings: bookingStore, waitlist: waitlistStore}
}

func (f *fixture) seedPatient(t *testing.T, email string) patients.TokenRecord {
	t.Helper()
	rec, err := f.tokens.CreateToken(patients.CreateTokenInput{
		PatientName:    "Ana Silva",
		PatientEmail:   email,
		MedicalForm:    `{"allergies":"none"}`,
		SessionPackage: patients.SessionPackage{Name: "4 Sessions Package"},
	})
	require.NoError(t, err)
	require.NoError(t, f.bookings.Insert(bookings.Booking{
		BookingID: "b1", BookingToken: rec.Token, Date: "2026-09-15", Time: "18:00",
		SessionType: "therapy", PatientName: "Ana Silva", PatientEmail: email,
		CreatedAt: time.Now(),
	}))
	_, err = f.waitlist.Add(waitlist.Entry{PatientName: "Ana Silva", PatientEmail: email})
	require.NoError(t, err)
	return rec
}

func TestExportBundlesEverything(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "ana@example.com")

	bundle, err := f.svc.Export("ana@example.com")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, bundle.Status)
	require.Len(t, bundle.Tokens, 1)
	assert.Equal(t, `{"allergies":"none"}`, bundle.Tokens[0].MedicalForm)
	assert.Len(t, bundle.Bookings, 1)
	assert.Len(t, bundle.Waitlist, 1)

	rows, err := f.svc.AuditLog()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "export", rows[0][2])
	assert.Equal(t, StatusCompleted, rows[0][4])
}

func TestExportNoData(t *testing.T) {
	f := newFixture(t)

	bundle, err := f.svc.Export("nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusNoDataFound, bundle.Status)
}

func TestEraseRejectedInsideRetention(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "ana@example.com")

	result, err := f.svc.Erase("ana@example.com")
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, result.Status)
	require.NotNil(t, result.RetentionUntil)
	assert.True(t, result.RetentionUntil.After(time.Now().AddDate(9, 0, 0)))

	// Nothing was touched.
	records, err := f.tokens.FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	all, err := f.bookings.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEraseAfterRetention(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "ana@example.com")

	f.svc.now = func() time.Time { return time.Now().AddDate(11, 0, 0) }

	result, err := f.svc.Erase("ana@example.com")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.TokensRemoved)
	assert.Equal(t, 1, result.BookingsRemoved)
	assert.Equal(t, 1, result.WaitlistRemoved)

	records, err := f.tokens.FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Empty(t, records)
	all, err := f.bookings.List()
	require.NoError(t, err)
	assert.Empty(t, all)
	entries, err := f.waitlist.FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Empty(t, entries)

	rows, err := f.svc.AuditLog()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, StatusCompleted, rows[0][4])
}

func TestEraseNoData(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Erase("nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusNoDataFound, result.Status)
}

func TestHandlerExport(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "ana@example.com")
	handler := NewHandler(f.svc, logging.Default())

	body, _ := json.Marshal(map[string]string{"email": "ana@example.com"})
	w := httptest.NewRecorder()
	handler.Export(w, httptest.NewRequest(http.MethodPost, "/admin/gdpr/export", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var bundle ExportBundle
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bundle))
	assert.Equal(t, StatusCompleted, bundle.Status)
}

func TestHandlerAuditLog(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "ana@example.com")
	handler := NewHandler(f.svc, logging.Default())

	_, err := f.svc.Export("ana@example.com")
	require.NoError(t, err)
	_, err = f.svc.Erase("ana@example.com")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.AuditLog(w, httptest.NewRequest(http.MethodGet, "/admin/gdpr/audit-log", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Requests []AuditEntry `json:"requests"`
		Count    int          `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "export", resp.Requests[0].RequestType)
	assert.Equal(t, StatusCompleted, resp.Requests[0].Status)
	assert.Equal(t, "erase", resp.Requests[1].RequestType)
	assert.Equal(t, StatusRejected, resp.Requests[1].Status)
}

func TestHandlerEraseRequiresEmail(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.svc, logging.Default())

	w := httptest.NewRecorder()
	handler.Erase(w, httptest.NewRequest(http.MethodPost, "/admin/gdpr/erase", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
