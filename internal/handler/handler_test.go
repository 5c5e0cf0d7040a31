package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryadmin/internal/account"
	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/auth"
	"libraryadmin/internal/config"
	"libraryadmin/internal/httpmiddleware"
	"libraryadmin/internal/mailer"
	"libraryadmin/internal/notice"
	"libraryadmin/internal/otp"
	"libraryadmin/internal/queue"
	"libraryadmin/internal/sms"
	"libraryadmin/internal/student"
)

type nopSMS struct{}

func (nopSMS) Send(context.Context, []string, string) error { return nil }

type testServer struct {
	engine *gin.Engine
	queue  *queue.InMemory
	tokens *auth.Tokens
}

func newServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	students := student.NewService(student.NewMemoryRepository(), student.WithClock(func() time.Time { return now }))
	tokens := auth.NewTokens("library-admin", "test-key", time.Hour, 24*time.Hour)
	q := queue.NewInMemory(16)

	d := Deps{
		Students: students,
		Accounts: account.NewService(account.NewMemoryRepository(), students),
		Notices:  notice.NewService(notice.NewMemoryRepository()),
		Auth:     auth.NewService(auth.NewMemoryRepository(), tokens, otp.NewMemoryStore(), 5*time.Minute, mailer.NewConsole(), nopSMS{}),
		Messages: sms.NewDispatcher(nopSMS{}, q),
		Library: config.Library{
			Name:         "Test Library",
			WifiPrefixes: []string{"192.168.1."},
			TotalSeats:   3,
			Shifts:       2,
		},
	}
	for _, m := range mutate {
		m(&d)
	}
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	New(d).Register(r)
	return &testServer{engine: r, queue: q, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	return s.doFrom(t, "192.0.2.1:1234", method, path, body, header...)
}

// doFrom sends the request with the given peer address.
func (s *testServer) doFrom(t *testing.T, remote, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = remote
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) enroll(t *testing.T, name, mobile string, seat int) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/students", gin.H{"name": name, "mobile": mobile, "shiftNo": []any{1, "2"}, "seatNo": seat})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode[struct {
		Student student.Student `json:"student"`
	}](t, w)
	return out.Student.ID
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestStudentAttendanceFlow(t *testing.T) {
	s := newServer(t)
	id := s.enroll(t, "A", "9999999999", 1)
	base := "/api/students/attendance/" + id

	w := s.do(t, http.MethodPost, base+"/entry", gin.H{"date": "2025-01-05", "entryTime": "09:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, base+"/exit", gin.H{"date": "2025-01-05", "exitTime": "17:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/students/"+id, gin.H{"name": "B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upd := decode[struct {
		Changes []student.ChangeEntry `json:"changes"`
	}](t, w)
	require.Len(t, upd.Changes, 1)
	assert.Equal(t, "name", upd.Changes[0].Field)

	w = s.do(t, http.MethodGet, "/api/students/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[student.Student](t, w)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, student.ShiftList{1, 2}, got.ShiftNo)
	require.Len(t, got.Attendance, 1)
	assert.Equal(t, []student.Session{{EntryTime: "09:00", ExitTime: "17:00"}}, got.Attendance[0].Sessions)
	require.Len(t, got.ModificationHistory, 1)

	w = s.do(t, http.MethodGet, "/api/students/modifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mods := decode[[]student.Modification](t, w)
	require.Len(t, mods, 1)
	assert.Equal(t, "A", mods[0].OldValue)

	w = s.do(t, http.MethodGet, "/api/students/attendance-summary?month=2025-01&password=9999999999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sums := decode[[]student.Summary](t, w)
	require.Len(t, sums, 1, "self-service summary is a one-element list")
	assert.Equal(t, 1, sums[0].PresentCount)
	assert.Equal(t, 30, sums[0].AbsentCount)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	id := s.enroll(t, "A", "1", 0)

	w := s.do(t, http.MethodPost, "/api/students/attendance/"+id+"/exit", gin.H{"date": "2025-01-05", "exitTime": "17:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "exit without entry")

	w = s.do(t, http.MethodPost, "/api/students/attendance/missing/entry", gin.H{"date": "2025-01-05", "entryTime": "09:00"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/students/attendance/"+id+"/entry", gin.H{"date": "05-01-2025", "entryTime": "09:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date must be YYYY-MM-DD", errorOf(t, w))

	w = s.do(t, http.MethodPost, "/api/students", gin.H{"name": "B", "mobile": "1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/students/attendance/"+id+"/entry", gin.H{"date": "2025-01-05", "index": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/students/attendance-summary?month=2025-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/students/attendance-summary-no-password?month=2025-13", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/students/"+id+"/status", gin.H{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPresentRequiresMobile(t *testing.T) {
	s := newServer(t)
	id := s.enroll(t, "A", "9999999999", 0)

	w := s.do(t, http.MethodPost, "/api/students/attendance/"+id, gin.H{"date": "2025-01-05", "present": true, "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/students/attendance/"+id, gin.H{"date": "2025-01-05", "present": true, "password": "9999999999"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/students/attendance-summary-no-password?month=2025-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]student.Summary](t, w)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].PresentCount)
}

func TestDownloadReceipt(t *testing.T) {
	s := newServer(t)
	id := s.enroll(t, "Asha", "9999999999", 0)

	w := s.do(t, http.MethodPost, "/api/students/download-receipt", gin.H{"month": "2025-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/students/download-receipt", gin.H{"month": "2025-01", "password": "9999999999"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "fee not paid")

	w = s.do(t, http.MethodPost, "/api/students/download-receipt", gin.H{"month": "2025-01", "password": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/students/"+id+"/mark-fee-paid", gin.H{"month": "2025-01", "amount": 500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/students/download-receipt", gin.H{"month": "2025-01", "password": "9999999999"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="receipt_Asha_2025-01.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = s.do(t, http.MethodGet, "/api/accounts/monthly-summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	months := decode[[]account.MonthSummary](t, w)
	require.Len(t, months, 1)
	assert.Equal(t, 500.0, months[0].Income)
}

func TestSeatsStatus(t *testing.T) {
	s := newServer(t)
	s.enroll(t, "A", "1", 2)

	w := s.do(t, http.MethodGet, "/api/seats-status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	seats := decode[[]map[string]any](t, w)
	require.Len(t, seats, 3)
	assert.Equal(t, map[string]any{"seatNo": 2.0, "shift1": "full", "shift2": "full"}, seats[1])
	assert.Equal(t, "empty", seats[0]["shift1"])
}

func TestBroadcastQueuesEnabledStudents(t *testing.T) {
	s := newServer(t)
	s.enroll(t, "A", "111", 0)
	off := s.enroll(t, "B", "222", 0)
	w := s.do(t, http.MethodPatch, "/api/students/"+off+"/status", gin.H{"status": "disabled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/send-message/broadcast", gin.H{"message": "Library closed tomorrow"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["queued"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := s.queue.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	var job sms.Job
	require.NoError(t, msg.Decode(&job))
	assert.Equal(t, []string{"111"}, job.Numbers)

	w = s.do(t, http.MethodPost, "/api/send-message", gin.H{"mobile": "111"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoticesAndExpenses(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/notices", gin.H{"text": "Closed on Sunday"})
	require.Equal(t, http.StatusCreated, w.Code)
	n := decode[struct {
		Notice notice.Notice `json:"notice"`
	}](t, w).Notice
	assert.True(t, n.IsNew)

	w = s.do(t, http.MethodGet, "/api/notices", nil)
	assert.Len(t, decode[[]notice.Notice](t, w), 1)
	w = s.do(t, http.MethodDelete, "/api/notices/"+n.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/notices/"+n.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/accounts/add", gin.H{"category": "rent", "amount": 2000, "date": "2025-01-02"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/accounts/add", gin.H{"category": "rent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/accounts/all", nil)
	assert.Len(t, decode[[]account.Expense](t, w), 1)
}

func TestAuthFlowAndAdminGuard(t *testing.T) {
	var tokens *auth.Tokens
	s := newServer(t, func(d *Deps) {
		tokens = auth.NewTokens("library-admin", "guard-key", time.Hour, time.Hour)
		d.Tokens = tokens
		d.Auth = auth.NewService(auth.NewMemoryRepository(), tokens, otp.NewMemoryStore(), time.Minute, mailer.NewConsole(), nil)
	})

	w := s.do(t, http.MethodGet, "/api/students", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/api/notices", nil)
	assert.Equal(t, http.StatusOK, w.Code, "notices are public")

	w = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "a@example.com", "username": "admin", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode[struct {
		Tokens auth.TokenPair `json:"tokens"`
	}](t, w).Tokens

	w = s.do(t, http.MethodGet, "/api/students", nil, "Authorization", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = s.do(t, http.MethodPost, "/api/auth/send-otp", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterOnlyOpenForFirstAdmin(t *testing.T) {
	s := newServer(t, func(d *Deps) {
		tokens := auth.NewTokens("library-admin", "guard-key", time.Hour, time.Hour)
		d.Tokens = tokens
		d.Auth = auth.NewService(auth.NewMemoryRepository(), tokens, otp.NewMemoryStore(), time.Minute, mailer.NewConsole(), nil)
	})

	w := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "owner@example.com", "username": "owner", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	intruder := gin.H{"email": "evil@example.com", "username": "evil", "password": "secret1"}
	w = s.do(t, http.MethodPost, "/api/auth/register", intruder)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/auth/register", intruder, "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "evil", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "rejected registration must not create an account")

	w = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "owner", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode[struct {
		Tokens auth.TokenPair `json:"tokens"`
	}](t, w).Tokens

	w = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "staff@example.com", "username": "staff", "password": "secret1"},
		"Authorization", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCheckWifi(t *testing.T) {
	s := newServer(t)
	w := s.doFrom(t, "192.168.1.40:5000", http.MethodGet, "/api/library/check-wifi", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["ok"])

	w = s.do(t, http.MethodGet, "/api/library/check-wifi", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["ok"])

	w = s.do(t, http.MethodGet, "/api/library/check-wifi", nil, "X-Forwarded-For", "192.168.1.40")
	assert.Equal(t, http.StatusForbidden, w.Code, "forwarded header from an untrusted peer is ignored")
}

func TestCheckWifiBehindTrustedProxy(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.engine.SetTrustedProxies([]string{"10.0.0.0/8"}))

	w := s.doFrom(t, "10.0.0.1:8080", http.MethodGet, "/api/library/check-wifi", nil, "X-Forwarded-For", "192.168.1.40")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.doFrom(t, "10.0.0.1:8080", http.MethodGet, "/api/library/check-wifi", nil, "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCredentialRateLimit(t *testing.T) {
	s := newServer(t, func(d *Deps) { d.CredentialLimiter = httpmiddleware.NewTokenBucket(1, 1) })
	w := s.do(t, http.MethodPost, "/api/students/verify-student-mobile", gin.H{"mobile": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/students/verify-student-mobile", gin.H{"mobile": "1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHealthz(t *testing.T) {
	s := newServer(t, func(d *Deps) {
		d.Health = map[string]HealthCheck{
			"db":    func(context.Context) bool { return true },
			"redis": func(context.Context) bool { return false },
		}
	})
	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["db"])
	assert.Equal(t, "degraded", body["status"])
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		apperrors.NotFound("x"):     http.StatusNotFound,
		apperrors.InvalidState("x"): http.StatusBadRequest,
		apperrors.Validation("x"):   http.StatusBadRequest,
		apperrors.Conflict("x"):     http.StatusConflict,
		apperrors.Unauthorized("x"): http.StatusUnauthorized,
		apperrors.Forbidden("x"):    http.StatusForbidden,
		apperrors.Gateway("x", nil): http.StatusBadGateway,
		apperrors.Storage("x", nil): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("wrapped: %w", apperrors.ErrConflict)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}
