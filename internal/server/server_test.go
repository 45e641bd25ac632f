package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Atishay264/Car-Management-App/internal/api/middleware"
)

// stubHandler запоминает имя вызванного обработчика.
type stubHandler struct {
	called string
}

func (s *stubHandler) record(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.called = name
		w.WriteHeader(http.StatusOK)
	}
}

func (s *stubHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	s.record("HealthLive")(w, r)
}
func (s *stubHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	s.record("HealthReady")(w, r)
}
func (s *stubHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	s.record("GetMetrics")(w, r)
}
func (s *stubHandler) ListCars(w http.ResponseWriter, r *http.Request) { s.record("ListCars")(w, r) }
func (s *stubHandler) SearchCars(w http.ResponseWriter, r *http.Request) {
	s.record("SearchCars")(w, r)
}
func (s *stubHandler) CarStats(w http.ResponseWriter, r *http.Request) { s.record("CarStats")(w, r) }
func (s *stubHandler) GetCar(w http.ResponseWriter, r *http.Request)   { s.record("GetCar")(w, r) }
func (s *stubHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	s.record("CreateCar")(w, r)
}
func (s *stubHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	s.record("UpdateCar")(w, r)
}
func (s *stubHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	s.record("DeleteCar")(w, r)
}
func (s *stubHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	s.record("ServeUpload")(w, r)
}

var testSecret = []byte("server-test-secret")

func newTestRouter() (http.Handler, *stubHandler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stub := &stubHandler{}
	auth := middleware.NewJWTAuthWithSecret(testSecret, 0, logger)
	return NewRouter(logger, stub, auth), stub
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "owner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/cars", "ListCars"},
		{http.MethodPost, "/cars", "CreateCar"},
		{http.MethodGet, "/cars/search", "SearchCars"},
		{http.MethodGet, "/cars/stats", "CarStats"},
		{http.MethodGet, "/cars/65f1c2a4b5e6f7a8b9c0d1e2", "GetCar"},
		{http.MethodPut, "/cars/65f1c2a4b5e6f7a8b9c0d1e2", "UpdateCar"},
		{http.MethodDelete, "/cars/65f1c2a4b5e6f7a8b9c0d1e2", "DeleteCar"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			router, stub := newTestRouter()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", bearer(t))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("статус = %d, ожидается 200", rec.Code)
			}
			if stub.called != tt.want {
				t.Errorf("вызван %q, ожидается %q", stub.called, tt.want)
			}
		})
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	for _, path := range []string{"/cars", "/cars/stats", "/cars/65f1c2a4b5e6f7a8b9c0d1e2"} {
		router, stub := newTestRouter()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: статус = %d, ожидается 401", path, rec.Code)
		}
		if stub.called != "" {
			t.Errorf("%s: обработчик %q не должен вызываться", path, stub.called)
		}
	}
}

func TestRouter_PublicPaths(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "HealthLive"},
		{"/health/ready", "HealthReady"},
		{"/metrics", "GetMetrics"},
		{"/uploads/3f0c9a.jpg", "ServeUpload"},
	}

	for _, tt := range tests {
		router, stub := newTestRouter()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != http.StatusOK || stub.called != tt.want {
			t.Errorf("%s: статус = %d, вызван %q, ожидается %q", tt.path, rec.Code, stub.called, tt.want)
		}
	}
}
