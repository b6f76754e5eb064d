package acceptance

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/citywheel/scooterfleet/api"
	"github.com/citywheel/scooterfleet/booking"
	"github.com/citywheel/scooterfleet/coordinator"
	"github.com/citywheel/scooterfleet/customer"
	"github.com/citywheel/scooterfleet/internal/o11y"
	"github.com/citywheel/scooterfleet/scooter"
)

func newTestRouter(t *testing.T) (*gin.Engine, func() int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	obs := &o11y.Observability{
		Logger:   testLogger(),
		Registry: prometheus.NewRegistry(),
	}
	coord := coordinator.New(db, newFakeCommander(), testLogger())

	a, err := api.New(
		scooter.NewRepository(db),
		booking.NewRepository(db),
		customer.NewRepository(db),
		coord, obs,
		api.Config{
			Auth0Domain:     "fleet-test.eu.auth0.com",
			Audience:        "https://api.scooterfleet.test",
			MetricsUsername: "metrics",
			MetricsPassword: "metrics",
		})
	if err != nil {
		t.Fatalf("failed to build api: %v", err)
	}
	return a.Router(), func() int64 { return createTestScooter(t, db) }
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestListScooters(t *testing.T) {
	router, addScooter := newTestRouter(t)
	addScooter()
	addScooter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scooters", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var scooters []struct {
		ID           int64   `json:"id"`
		Lat          float64 `json:"latitude"`
		BatteryLevel int     `json:"batteryLevel"`
		Occupied     bool    `json:"occupied"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &scooters); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(scooters) != 2 {
		t.Fatalf("got %d scooters, want 2", len(scooters))
	}
	if scooters[0].Occupied {
		t.Fatal("fresh scooter reported occupied")
	}
}

func TestGetScooter(t *testing.T) {
	router, addScooter := newTestRouter(t)
	id := addScooter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scooters/999999", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scooters/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a malformed id", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scooters/"+strconv.FormatInt(id, 10), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestBookingsRequireAuthentication(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	if w.Code < 400 {
		t.Fatalf("status = %d, want a 4xx without a token", w.Code)
	}
}

func TestMetricsRequireBasicAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without credentials", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("metrics", "metrics")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with credentials", w.Code)
	}
}
