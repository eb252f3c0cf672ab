package bookings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

func TestHandlerCreate(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	body, _ := json.Marshal(CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00", Online: true})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(false)(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var booking Booking
	require.NoError(t, json.NewDecoder(w.Body).Decode(&booking))
	assert.NotEmpty(t, booking.MeetLink)
}

func TestHandlerCreateConflict(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	body, _ := json.Marshal(CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00"})
	w := httptest.NewRecorder()
	handler.Create(false)(w, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	body, _ = json.Marshal(CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00"})
	w = httptest.NewRecorder()
	handler.Create(false)(w, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlerCreateUnknownToken(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())

	body, _ := json.Marshal(CreateRequest{Token: "missing", Date: "2026-09-15", Time: "18:00"})
	w := httptest.NewRecorder()
	handler.Create(false)(w, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerCreateInvalidDate(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	body, _ := json.Marshal(CreateRequest{Token: token, Date: "soon", Time: "18:00"})
	w := httptest.NewRecorder()
	handler.Create(false)(w, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerCancel(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	body, _ := json.Marshal(CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00"})
	w := httptest.NewRecorder()
	handler.Create(false)(w, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	body, _ = json.Marshal(CancelRequest{Token: token, Date: "2026-09-15"})
	w = httptest.NewRecorder()
	handler.Cancel(w, httptest.NewRequest(http.MethodDelete, "/api/bookings", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerCancelMissingFields(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())

	body, _ := json.Marshal(CancelRequest{Token: "t"})
	w := httptest.NewRecorder()
	handler.Cancel(w, httptest.NewRequest(http.MethodDelete, "/api/bookings", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerAdminList(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	body, _ := json.Marshal(CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00"})
	w := httptest.NewRecorder()
	handler.Create(true)(w, httptest.NewRequest(http.MethodPost, "/admin/bookings", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	handler.AdminList(w, httptest.NewRequest(http.MethodGet, "/admin/bookings?start=2026-09-01&end=2026-09-30", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp AdminListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Bookings, 1)
}

func TestHandlerAdminListRangeQuery(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	for _, date := range []string{"2026-09-15", "2026-12-01"} {
		body, _ := json.Marshal(CreateRequest{Token: token, Date: date, Time: "18:00"})
		w := httptest.NewRecorder()
		handler.Create(true)(w, httptest.NewRequest(http.MethodPost, "/admin/bookings", bytes.NewReader(body)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	handler.AdminList(w, httptest.NewRequest(http.MethodGet, "/admin/bookings?start=2026-09-01&end=2026-09-30", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp AdminListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "2026-09-15", resp.Bookings[0].Date)
}

func TestHandlerListForToken(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "4 Sessions Package")

	body, _ := json.Marshal(CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00"})
	w := httptest.NewRecorder()
	handler.Create(false)(w, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	handler.ListForToken(w, httptest.NewRequest(http.MethodGet, "/api/bookings?token="+token, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bookings []Booking `json:"bookings"`
		Count    int       `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "2026-09-15", resp.Bookings[0].Date)

	w = httptest.NewRecorder()
	handler.ListForToken(w, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerRecurring(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.service, logging.Default())
	token := f.newToken(t, "6 Sessions Package")

	body, _ := json.Marshal(RecurringRequest{
		CreateRequest: CreateRequest{Token: token, Date: "2026-09-15", Time: "18:00"},
		Occurrences:   3,
	})
	w := httptest.NewRecorder()
	handler.CreateRecurring(w, httptest.NewRequest(http.MethodPost, "/admin/bookings/recurring", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var result RecurringResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Len(t, result.Created, 3)
}
