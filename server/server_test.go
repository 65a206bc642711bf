package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-ordering/api/auth"
	"food-ordering/api/cart"
	"food-ordering/api/checkout"
	"food-ordering/api/config"
	"food-ordering/api/handlers"
	"food-ordering/api/realtime"
	"food-ordering/api/session"
	"food-ordering/api/store/memory"
)

func TestHealthAndMetrics(t *testing.T) {
	db := memory.New()
	hub := realtime.NewHub(8)
	sessions := session.NewManager("secret", time.Hour, session.NewMemoryRevoker())
	h := handlers.New(handlers.Deps{
		Sessions:    sessions,
		Auth:        auth.NewService(db.Users(), db.Owners(), sessions, auth.NewMemoryConfirmationStore(), auth.Options{}),
		Restaurants: db.Restaurants(),
		MenuItems:   db.MenuItems(),
		Orders:      db.Orders(),
		Carts:       cart.NewMemoryStore(),
		Checkout:    checkout.NewService(db.Orders(), hub, nil, checkout.Pricing{DeliveryFee: decimal.NewFromInt(40)}, time.Minute),
		Flows:       checkout.NewMemoryStateStore(),
		Hub:         hub,
	})
	app := New(config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second}, h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/restaurants/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"not found"}`, string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "food_ordering_http_request_duration_seconds"))
	// domain errors are labelled with the status the client received
	assert.Contains(t, string(body), `method="GET",route="/api/v1/restaurants/:id",status="404"`)
	assert.NotContains(t, string(body), `method="GET",route="/api/v1/restaurants/:id",status="200"`)
}
