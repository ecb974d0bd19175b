package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type tokenSet map[string]bool

func (s tokenSet) ValidToken(token string) bool { return s[token] }

var teapot = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(tokenSet{"good": true})(teapot)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer good", want: http.StatusTeapot},
		{name: "unknown token", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCronSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		headers map[string]string
		want    int
	}{
		{name: "bearer", secret: "s3cret", headers: map[string]string{"Authorization": "Bearer s3cret"}, want: http.StatusTeapot},
		{name: "custom header", secret: "s3cret", headers: map[string]string{"X-Cron-Secret": "s3cret"}, want: http.StatusTeapot},
		{name: "wrong secret", secret: "s3cret", headers: map[string]string{"X-Cron-Secret": "nope"}, want: http.StatusUnauthorized},
		{name: "no secret configured", headers: map[string]string{"X-Cron-Secret": ""}, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cron/record-balance", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			CronSecret(tt.secret)(teapot).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:41234"
	assert.Equal(t, "10.0.0.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://daybal.vercel.app"})(teapot)

	req := httptest.NewRequest(http.MethodOptions, "/api/balance", nil)
	req.Header.Set("Origin", "https://daybal.vercel.app")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://daybal.vercel.app", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := Logging(log)(Recovery(log)(panicky))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.JSONEq(t, `{"error":true,"detail":"Internal server error"}`, string(body))
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), "Panic recovered")
}
