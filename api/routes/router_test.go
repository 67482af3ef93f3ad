package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"moviebooking/api/routes"
	"moviebooking/internal/app"
	"moviebooking/internal/shared/config"
	"moviebooking/internal/storage/memory"
	"moviebooking/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type server struct {
	t       *testing.T
	engine  *gin.Engine
	backend *app.Backend
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "routes-test-secret")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_ENABLED", "false")

	cfg := config.Load()
	backend := app.NewMemoryBackend(memory.NewDB(), nil)
	services := app.NewServices(cfg, backend, nil)

	engine := gin.New()
	routes.NewRouter(cfg, backend, services).SetupRoutes(engine)
	return &server{t: t, engine: engine, backend: backend}
}

func (s *server) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "image/png" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *server) register(login string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"login_name": login,
		"first_name": "Test",
		"last_name":  "User",
		"email":      login + "@example.com",
		"password":   "password1",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	return accessToken(s.t, env)
}

func (s *server) adminToken() string {
	s.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(s.t, err)
	require.NoError(s.t, s.backend.Users.CreateUser(context.Background(), &users.User{
		ID:        uuid.New(),
		LoginName: "boxoffice",
		FirstName: "Box",
		LastName:  "Office",
		Email:     "boxoffice@example.com",
		Password:  string(hash),
		Role:      users.RoleAdmin,
	}))

	code, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "boxoffice", "password": "admin-pass"})
	require.Equal(s.t, http.StatusOK, code, env.Message)
	return accessToken(s.t, env)
}

func accessToken(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func TestBookingLifecycle(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()
	alice := s.register("alice")
	bob := s.register("bob")

	code, env := s.do(http.MethodPost, "/api/v1/admin/movies", admin, gin.H{
		"movie_name":    "Avengers",
		"theatre_name":  "PVR",
		"total_tickets": 10,
		"ticket_price":  200,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/movies", alice, gin.H{
		"movie_name": "Dune", "theatre_name": "PVR", "total_tickets": 10,
	})
	assert.Equal(t, http.StatusForbidden, code)

	bookingPath := "/api/v1/movies/Avengers/theatres/PVR/bookings"
	code, _ = s.do(http.MethodPost, bookingPath, "", gin.H{"number_of_tickets": 1, "seat_numbers": []string{"A1"}})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(http.MethodPost, bookingPath, alice, gin.H{"number_of_tickets": 2, "seat_numbers": []string{"A1", "A2"}})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var booking struct {
		Reference string   `json:"booking_reference"`
		Status    string   `json:"status"`
		Seats     []string `json:"seat_numbers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, "CONFIRMED", booking.Status)
	assert.Equal(t, []string{"A1", "A2"}, booking.Seats)

	code, env = s.do(http.MethodPost, bookingPath, bob, gin.H{"number_of_tickets": 1, "seat_numbers": []string{"A2"}})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, env.Message, "A2")

	code, _ = s.do(http.MethodPost, bookingPath, bob, gin.H{"number_of_tickets": 11, "seat_numbers": []string{"B1"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodGet, "/api/v1/movies/Avengers/theatres/PVR/seats", "", nil)
	require.Equal(t, http.StatusOK, code)
	var seatMap struct {
		Available int      `json:"available_tickets"`
		Booked    []string `json:"booked_seats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &seatMap))
	assert.Equal(t, 8, seatMap.Available)
	assert.Equal(t, []string{"A1", "A2"}, seatMap.Booked)

	ticketPath := "/api/v1/tickets/" + booking.Reference
	code, _ = s.do(http.MethodGet, ticketPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodDelete, ticketPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodDelete, ticketPath, alice, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(http.MethodDelete, ticketPath, alice, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodGet, "/api/v1/movies/Avengers/theatres/PVR", "", nil)
	require.Equal(t, http.StatusOK, code)
	var movie struct {
		Available int    `json:"available_tickets"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &movie))
	assert.Equal(t, 10, movie.Available)
	assert.Equal(t, "BOOKABLE", movie.Status)
}

func TestAdminStatistics(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()
	alice := s.register("alice")

	code, _ := s.do(http.MethodPost, "/api/v1/admin/movies", admin, gin.H{
		"movie_name": "Avengers", "theatre_name": "PVR", "total_tickets": 10, "ticket_price": 100,
	})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/v1/movies/Avengers/theatres/PVR/bookings", alice, gin.H{
		"number_of_tickets": 3, "seat_numbers": []string{"C1", "C2", "C3"},
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(http.MethodGet, "/api/v1/admin/stats/movies", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(http.MethodGet, "/api/v1/admin/stats/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var stats []struct {
		Key     string  `json:"key"`
		Tickets int64   `json:"tickets"`
		Revenue float64 `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "alice", stats[0].Key)
	assert.Equal(t, int64(3), stats[0].Tickets)
	assert.Equal(t, 300.0, stats[0].Revenue)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/maintenance/purge", admin, gin.H{"older_than_days": 30})
	assert.Equal(t, http.StatusOK, code)
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
}
