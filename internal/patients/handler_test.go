package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/medcrypt"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "booking-tokens.csv"))
	enc, err := medcrypt.New("test-secret")
	require.NoError(t, err)
	svc := NewService(store, enc, logging.Default())
	return NewHandler(svc, logging.Default()), svc
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestSubmitMedicalForm(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, _ := json.Marshal(SubmitMedicalFormRequest{
		PatientName:    "Ana Silva",
		PatientEmail:   "ana@example.com",
		MedicalForm:    json.RawMessage(`{"email":"ana@example.com"}`),
		SessionPackage: SessionPackage{Name: "4 Sessions Package", Price: 240},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/medical-form", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitMedicalForm(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var rec TokenRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.NotEmpty(t, rec.Token)
}

func TestSubmitMedicalFormValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, _ := json.Marshal(SubmitMedicalFormRequest{PatientName: "Ana"})
	req := httptest.NewRequest(http.MethodPost, "/api/medical-form", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitMedicalForm(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateTokenNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/booking-tokens/none", nil)
	req = withURLParam(req, "token", "none")
	w := httptest.NewRecorder()

	handler.ValidateToken(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateTokenSummary(t *testing.T) {
	handler, svc := newTestHandler(t)
	rec, err := svc.CreateToken(CreateTokenInput{
		PatientEmail:   "ana@example.com",
		SessionPackage: SessionPackage{Name: "6 Sessions Package"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/booking-tokens/"+rec.Token, nil)
	req = withURLParam(req, "token", rec.Token)
	w := httptest.NewRecorder()

	handler.ValidateToken(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var summary SessionSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, 6, summary.SessionsTotal)
	assert.True(t, summary.CanBook)
}

func TestOverrideSessions(t *testing.T) {
	handler, svc := newTestHandler(t)
	rec, err := svc.CreateToken(CreateTokenInput{
		PatientEmail:   "ana@example.com",
		SessionPackage: SessionPackage{Name: "4 Sessions Package"},
	})
	require.NoError(t, err)

	body, _ := json.Marshal(OverrideSessionsRequest{SessionsUsed: 3})
	req := httptest.NewRequest(http.MethodPatch, "/admin/booking-tokens/"+rec.Token+"/sessions", bytes.NewReader(body))
	req = withURLParam(req, "token", rec.Token)
	w := httptest.NewRecorder()

	handler.OverrideSessions(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var summary SessionSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, 3, summary.SessionsUsed)
	assert.Equal(t, 1, summary.SessionsRemaining)
}
