package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/Freeeeeet/interview_scheduler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-0123456789"

var (
	admin       = model.Identity{ID: 1, Role: model.RoleAdmin}
	interviewer = model.Identity{ID: 100, Role: model.RoleInterviewer}
	candidate   = model.Identity{ID: 200, Role: model.RoleCandidate}
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type apiEnv struct {
	t      *testing.T
	server *httptest.Server
	tokens *auth.Manager
	files  *storage.MemoryStore
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store := memory.NewStore()
	clock := &fixedClock{now: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)

	logger := zap.NewNop()
	bus := events.NewBus()
	tx := store.TxManager()

	profiles := service.NewProfileService(store.Profiles(), nil, clock, logger)
	pricing := service.NewPricingService(store.Prices(), "INR", clock, logger)
	slots := service.NewSlotService(store.Slots(), pricing, tx, bus, clock, logger)
	payments := service.NewPaymentService(store.Payments(), profiles, bus, clock, logger)

	tokens := auth.NewManager(testSecret)
	files := storage.NewMemoryStore("http://localhost:8080/api/files")

	router := NewRouter(Deps{
		Slots:         slots,
		Bookings:      service.NewBookingService(store.Slots(), slots, store.Interviews(), payments, store.Payments(), profiles, tx, bus, clock, logger),
		Payments:      payments,
		Interviews:    service.NewInterviewService(store.Interviews(), slots, payments, pricing, tx, bus, clock, logger),
		Feedback:      service.NewFeedbackService(store.Feedback(), store.Ratings(), store.Interviews(), bus, clock, logger),
		Profiles:      profiles,
		Pricing:       pricing,
		Auth:          tokens,
		Store:         files,
		Metrics:       metrics.New(),
		Clock:         clock,
		Logger:        logger,
		ProofMaxBytes: 64 * 1024,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiEnv{t: t, server: server, tokens: tokens, files: files}
}

func (e *apiEnv) do(who *model.Identity, method, path string, body any) *http.Response {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.send(who, req)
}

func (e *apiEnv) send(who *model.Identity, req *http.Request) *http.Response {
	e.t.Helper()

	if who != nil {
		token, err := e.tokens.Issue(*who, time.Hour)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (e *apiEnv) confirmRequest(paymentID, transactionID string, file []byte) *http.Request {
	e.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(e.t, mw.WriteField("paymentId", paymentID))
	require.NoError(e.t, mw.WriteField("transactionId", transactionID))
	fw, err := mw.CreateFormFile("transactionScreenshot", "proof.png")
	require.NoError(e.t, err)
	_, err = fw.Write(file)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/bookings/confirm", &body)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// setup цена DSA и профиль интервьюера
func (e *apiEnv) setup() {
	e.t.Helper()

	resp := e.do(&admin, http.MethodPut, "/api/admin/prices", map[string]any{"interviewType": "DSA", "amount": 500})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)

	resp = e.do(&interviewer, http.MethodPut, "/api/profile", map[string]any{
		"defaultMeetingLink": "https://meet.example.com/room-1",
		"upiId":              "host@upi",
	})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
}

func (e *apiEnv) createSlot(startTime string) *model.Slot {
	e.t.Helper()

	resp := e.do(&interviewer, http.MethodPost, "/api/slots", map[string]any{
		"interviewType": "DSA",
		"startTime":     startTime,
		"timeZone":      "Asia/Kolkata",
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return decode[*model.Slot](e.t, resp)
}

func TestRouter_HealthAndAuth(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(nil, http.MethodGet, "/api/slots", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/slots", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(nil, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_BookingFlow(t *testing.T) {
	env := newAPIEnv(t)
	env.setup()

	// 09:00 в Калькутте = 03:30 UTC
	slot := env.createSlot("2024-06-05T09:00")
	assert.Equal(t, time.Date(2024, 6, 5, 3, 30, 0, 0, time.UTC), slot.StartAt.UTC())
	assert.Equal(t, "Asia/Kolkata", slot.SourceTimeZone)

	resp := env.do(&candidate, http.MethodGet, "/api/slots?interviewType=DSA", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]*model.Slot](t, resp), 1)

	resp = env.do(&candidate, http.MethodPost, "/api/slots/"+itoa(slot.ID)+"/book", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	details := decode[model.PaymentDetails](t, resp)
	assert.Equal(t, int64(500), details.Amount)
	assert.Equal(t, "host@upi", details.UpiID)

	// неверный номер транзакции
	resp = env.send(&candidate, env.confirmRequest(itoa(details.PaymentID), "12345", pngBytes(t)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[errorResponse](t, resp).Error)

	// не картинка
	resp = env.send(&candidate, env.confirmRequest(itoa(details.PaymentID), "4321", []byte("%PDF-1.4 not an image")))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// отклонённые запросы ничего не сохраняют
	assert.Zero(t, env.files.Len())

	resp = env.send(&candidate, env.confirmRequest(itoa(details.PaymentID), "4321", pngBytes(t)))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	interview := decode[model.Interview](t, resp)
	assert.Equal(t, model.InterviewStatusScheduled, interview.Status)
	require.NotNil(t, interview.MeetingLink)

	resp = env.do(&interviewer, http.MethodGet, "/api/payments/interview/"+itoa(interview.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payments := decode[service.InterviewPayments](t, resp)
	require.NotNil(t, payments.PreBooking)
	assert.Equal(t, model.PaymentStatusSubmitted, payments.PreBooking.Status)
	assert.Equal(t, "4321", payments.PreBooking.TransactionRef)

	_, contentType, ok := env.files.Get(payments.PreBooking.ProofAssetRef)
	require.True(t, ok)
	assert.Equal(t, "image/png", contentType)

	// слот уже занят
	resp = env.do(&candidate, http.MethodPost, "/api/slots/"+itoa(slot.ID)+"/book", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(&interviewer, http.MethodPost, "/api/payments/"+itoa(details.PaymentID)+"/decision", map[string]any{"approve": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.PaymentStatusVerified, decode[model.Payment](t, resp).Status)

	resp = env.do(&interviewer, http.MethodGet, "/api/slots/mine/week.png?date=2024-06-05&timeZone=Asia/Kolkata", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestRouter_ProofUploadChecksPayerBeforeStoring(t *testing.T) {
	env := newAPIEnv(t)
	env.setup()

	slot := env.createSlot("2024-06-05T09:00")
	resp := env.do(&candidate, http.MethodPost, "/api/slots/"+itoa(slot.ID)+"/book", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	details := decode[model.PaymentDetails](t, resp)

	other := model.Identity{ID: 201, Role: model.RoleCandidate}
	resp = env.send(&other, env.confirmRequest(itoa(details.PaymentID), "4321", pngBytes(t)))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.send(&candidate, env.confirmRequest("9999", "4321", pngBytes(t)))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Zero(t, env.files.Len())

	resp = env.send(&candidate, env.confirmRequest(itoa(details.PaymentID), "4321", pngBytes(t)))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.files.Len())

	// чек уже на проверке, повторная загрузка отклоняется до сохранения
	resp = env.send(&candidate, env.confirmRequest(itoa(details.PaymentID), "4321", pngBytes(t)))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, env.files.Len())
}

func TestRouter_ErrorMapping(t *testing.T) {
	env := newAPIEnv(t)
	env.setup()

	tests := []struct {
		name   string
		who    model.Identity
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "candidate cannot create slots",
			who:    candidate,
			method: http.MethodPost,
			path:   "/api/slots",
			body:   map[string]any{"interviewType": "DSA", "startTime": "2024-06-05T09:00", "timeZone": "UTC"},
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "lead time",
			who:    interviewer,
			method: http.MethodPost,
			path:   "/api/slots",
			body:   map[string]any{"interviewType": "DSA", "startTime": "2024-06-03T20:00:00Z", "timeZone": "UTC"},
			status: http.StatusUnprocessableEntity,
			code:   "LEAD_TIME_VIOLATION",
		},
		{
			name:   "unknown zone",
			who:    interviewer,
			method: http.MethodPost,
			path:   "/api/slots",
			body:   map[string]any{"interviewType": "DSA", "startTime": "2024-06-05T09:00", "timeZone": "Mars/Olympus"},
			status: http.StatusBadRequest,
			code:   "VALIDATION",
		},
		{
			name:   "missing slot",
			who:    candidate,
			method: http.MethodPost,
			path:   "/api/slots/999/book",
			status: http.StatusNotFound,
			code:   "SLOT_NOT_FOUND",
		},
		{
			name:   "prices are admin only",
			who:    interviewer,
			method: http.MethodGet,
			path:   "/api/admin/prices",
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "unknown fields rejected",
			who:    candidate,
			method: http.MethodPost,
			path:   "/api/ratings",
			body:   map[string]any{"interviewId": 1, "rating": 5, "stars": 5},
			status: http.StatusBadRequest,
			code:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(&tt.who, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestRouter_BatchOverlapReportsIndex(t *testing.T) {
	env := newAPIEnv(t)
	env.setup()

	resp := env.do(&interviewer, http.MethodPost, "/api/slots/batch", map[string]any{
		"interviewType": "DSA",
		"timeZone":      "UTC",
		"slots":         []string{"2024-06-05T09:00", "2024-06-06T09:00", "2024-06-06T09:20"},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decode[errorResponse](t, resp)
	assert.Equal(t, "OVERLAP", body.Error)
	require.NotNil(t, body.Index)
	assert.Equal(t, 2, *body.Index)

	// пачка не создана целиком
	resp = env.do(&interviewer, http.MethodGet, "/api/slots/mine?startDate=2024-06-01&endDate=2024-06-30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]*model.Slot](t, resp))
}

func TestRouter_RecurringAndQRUpload(t *testing.T) {
	env := newAPIEnv(t)
	env.setup()

	resp := env.do(&interviewer, http.MethodPost, "/api/slots/recurring", map[string]any{
		"interviewType": "DSA",
		"dayOfWeek":     2,
		"hour":          18,
		"timeZone":      "Asia/Kolkata",
		"weeks":         3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slots := decode[[]*model.Slot](t, resp)
	require.Len(t, slots, 3)
	assert.Equal(t, time.Date(2024, 6, 4, 12, 30, 0, 0, time.UTC), slots[0].StartAt.UTC())
	require.NotNil(t, slots[0].SeriesID)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("qrCode", "qr.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/profile/qr", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp = env.send(&interviewer, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[model.Profile](t, resp)
	assert.True(t, strings.HasPrefix(profile.QrCodeURL, "http://localhost:8080/api/files/qr/100/"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
