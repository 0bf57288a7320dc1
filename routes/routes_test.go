package routes

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

	"spotkeeper/handlers"
	"spotkeeper/services"
	"spotkeeper/store"
	"spotkeeper/utils"
)

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	secret []byte
}

func newTestServer(t *testing.T, checkInPerMinute int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	users := services.NewUserService(st)
	hash, err := utils.HashPassword("admin-pass")
	require.NoError(t, err)
	_, err = users.EnsureAdmin(context.Background(), "admin", "admin@example.com", hash)
	require.NoError(t, err)

	secret := []byte("routes-test-secret")
	h := &handlers.Handler{
		Lots:       services.NewLotService(st),
		Allocation: services.NewAllocationService(st),
		Reports:    services.NewReportService(st),
		Users:      users,
		JWTSecret:  secret,
		TokenTTL:   time.Hour,
	}
	return &testServer{t: t, router: NewRouter(h, NewRateLimiter(checkInPerMinute)), secret: secret}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, apiResponse) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, code, resp.Error)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func (s *testServer) registerAndLogin(username string) string {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "user-pass",
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Error)
	return s.login(username, "user-pass")
}

func (s *testServer) createLot(adminToken string, capacity int) int {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/v1/admin/lots", adminToken, gin.H{
		"name":           "Central",
		"address":        "1 Main Street",
		"pincode":        "560001",
		"price_per_hour": 10,
		"capacity":       capacity,
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Error)

	var lot struct {
		LotID          int `json:"lot_id"`
		AvailableSpots int `json:"available_spots"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &lot))
	require.Equal(s.t, capacity, lot.AvailableSpots)
	return lot.LotID
}

func TestPing(t *testing.T) {
	s := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, 10)

	code, resp := s.do(http.MethodGet, "/api/v1/lots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "ERR_NO_AUTH_HEADER", resp.Code)

	code, resp = s.do(http.MethodGet, "/api/v1/lots", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "ERR_INVALID_TOKEN", resp.Code)

	expired, err := utils.GenerateToken(1, false, s.secret, -time.Minute)
	require.NoError(t, err)
	code, resp = s.do(http.MethodGet, "/api/v1/lots", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "ERR_TOKEN_EXPIRED", resp.Code)

	userToken := s.registerAndLogin("yuri")
	code, resp = s.do(http.MethodGet, "/api/v1/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ERR_INSUFFICIENT_PERMISSIONS", resp.Code)

	code, _ = s.do(http.MethodGet, "/api/v1/lots", userToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestLoginFailure(t *testing.T) {
	s := newTestServer(t, 10)

	code, resp := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "ERR_INVALID_CREDENTIALS", resp.Code)

	code, resp = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "admin", "email": "new@example.com", "password": "whatever",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_CONFLICT", resp.Code)
}

func TestParkingFlow(t *testing.T) {
	s := newTestServer(t, 10)
	admin := s.login("admin", "admin-pass")
	alice := s.registerAndLogin("alice")
	bob := s.registerAndLogin("bob")
	lotID := s.createLot(admin, 1)
	checkInPath := fmt.Sprintf("/api/v1/lots/%d/check-in", lotID)

	code, resp := s.do(http.MethodPost, checkInPath, alice, gin.H{"vehicle_number": "KA01AB1234"})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var booking struct {
		BookingID  int      `json:"booking_id"`
		SpotNumber int      `json:"spot_number"`
		TotalCost  *float64 `json:"total_cost"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &booking))
	assert.Equal(t, 1, booking.SpotNumber)
	assert.Nil(t, booking.TotalCost)

	code, resp = s.do(http.MethodPost, checkInPath, bob, gin.H{"vehicle_number": "KA01CD5678"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_LOT_FULL", resp.Code)

	code, resp = s.do(http.MethodPost, checkInPath, bob, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_INVALID_INPUT", resp.Code)

	code, resp = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/lots/%d", lotID), admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_CONFLICT", resp.Code)

	checkOutPath := fmt.Sprintf("/api/v1/bookings/%d/check-out", booking.BookingID)
	code, _ = s.do(http.MethodPost, checkOutPath, bob, nil)
	assert.Equal(t, http.StatusNotFound, code, "only the owner can check out")

	code, resp = s.do(http.MethodPost, checkOutPath, alice, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, &booking))
	require.NotNil(t, booking.TotalCost)
	assert.Contains(t, []float64{0, 10}, *booking.TotalCost, "at most one started hour")

	code, resp = s.do(http.MethodPost, checkOutPath, alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Code)

	code, resp = s.do(http.MethodGet, "/api/v1/bookings/history", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var history []json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	assert.Len(t, history, 1)

	code, resp = s.do(http.MethodGet, "/api/v1/admin/reports/occupancy", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var occ struct {
		Overall services.Occupancy `json:"overall"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &occ))
	assert.Equal(t, services.Occupancy{Occupied: 0, Available: 1}, occ.Overall)
}

func TestAdminLotManagement(t *testing.T) {
	s := newTestServer(t, 10)
	admin := s.login("admin", "admin-pass")
	lotID := s.createLot(admin, 2)

	code, resp := s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/lots/%d/spots", lotID), admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_CAPACITY_EXCEEDED", resp.Code)

	code, resp = s.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/lots/%d", lotID), admin, gin.H{
		"name": "Renamed", "address": "2 Side Road", "pincode": "560002", "price_per_hour": 12,
	})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/lots/%d", lotID), admin, nil)
	require.Equal(t, http.StatusOK, code)
	var details struct {
		Lot struct {
			Name     string `json:"name"`
			Capacity int    `json:"capacity"`
		} `json:"lot"`
		Spots []struct {
			SpotID     int `json:"spot_id"`
			SpotNumber int `json:"spot_number"`
		} `json:"spots"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &details))
	assert.Equal(t, "Renamed", details.Lot.Name)
	assert.Equal(t, 2, details.Lot.Capacity)
	require.Len(t, details.Spots, 2)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/spots/%d", details.Spots[1].SpotID), admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/lots/%d/spots", lotID), admin, nil)
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var spot struct {
		SpotNumber int `json:"spot_number"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &spot))
	assert.Equal(t, 3, spot.SpotNumber)

	code, resp = s.do(http.MethodGet, "/api/v1/admin/lots/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_INVALID_ID", resp.Code)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/lots/%d", lotID), admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/lots/%d", lotID), admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminUsers(t *testing.T) {
	s := newTestServer(t, 10)
	admin := s.login("admin", "admin-pass")
	s.registerAndLogin("zoe")

	code, resp := s.do(http.MethodGet, "/api/v1/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var users []struct {
		UserID   int    `json:"user_id"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "zoe", users[0].Username)

	code, resp = s.do(http.MethodDelete, "/api/v1/admin/users/1", admin, nil)
	assert.Equal(t, http.StatusConflict, code, "admin cannot be removed")
	assert.Equal(t, "ERR_CONFLICT", resp.Code)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", users[0].UserID), admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckInRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	admin := s.login("admin", "admin-pass")
	user := s.registerAndLogin("rate")
	lotID := s.createLot(admin, 5)
	path := fmt.Sprintf("/api/v1/lots/%d/check-in", lotID)

	for i := 0; i < 2; i++ {
		code, resp := s.do(http.MethodPost, path, user, gin.H{"vehicle_number": fmt.Sprintf("RL%d", i)})
		require.Equal(t, http.StatusCreated, code, resp.Error)
	}
	code, resp := s.do(http.MethodPost, path, user, gin.H{"vehicle_number": "RL3"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "ERR_RATE_LIMITED", resp.Code)

	other := s.registerAndLogin("other")
	code, _ = s.do(http.MethodPost, path, other, gin.H{"vehicle_number": "OT1"})
	assert.Equal(t, http.StatusCreated, code, "limits are per user")
}
