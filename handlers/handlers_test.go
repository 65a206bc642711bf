package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"food-ordering/api/auth"
	"food-ordering/api/cart"
	"food-ordering/api/checkout"
	"food-ordering/api/events"
	"food-ordering/api/media"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
	"food-ordering/api/session"
	"food-ordering/api/store/memory"
)

type testEnv struct {
	t      *testing.T
	app    *fiber.App
	db     *memory.Store
	hub    *realtime.Hub
	audit  *events.MemoryLogger
	images *media.MemoryStore
	auth   *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := memory.New()
	hub := realtime.NewHub(32)
	audit := &events.MemoryLogger{}
	images := media.NewMemoryStore("http://localhost/media")
	sessions := session.NewManager("test-secret", time.Hour, session.NewMemoryRevoker())
	authSvc := auth.NewService(db.Users(), db.Owners(), sessions, auth.NewMemoryConfirmationStore(), auth.Options{HashCost: bcrypt.MinCost})
	pricing := checkout.Pricing{DeliveryFee: decimal.NewFromInt(40), TaxRate: decimal.RequireFromString("0.05")}

	h := New(Deps{
		Sessions:    sessions,
		Auth:        authSvc,
		Restaurants: db.Restaurants(),
		MenuItems:   db.MenuItems(),
		Orders:      db.Orders(),
		Carts:       cart.NewMemoryStore(),
		Checkout:    checkout.NewService(db.Orders(), hub, audit, pricing, 30*time.Minute),
		Flows:       checkout.NewMemoryStateStore(),
		Hub:         hub,
		Events:      audit,
		Images:      images,
	})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Register(app)

	return &testEnv{t: t, app: app, db: db, hub: hub, audit: audit, images: images, auth: authSvc}
}

func (e *testEnv) do(method, path, token string, body interface{}) (*http.Response, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, data
}

func (e *testEnv) signUp(email string, role models.Role) (string, string) {
	e.t.Helper()
	res, err := e.auth.SignUp(context.Background(), email, "secret1", role, "Test "+string(role))
	require.NoError(e.t, err)
	return res.Token, res.User.ID
}

// owner creates an owner account with a restaurant and one menu item.
func (e *testEnv) owner(email, restaurantID string) string {
	e.t.Helper()
	token, userID := e.signUp(email, models.RoleOwner)
	ctx := context.Background()
	require.NoError(e.t, e.db.Restaurants().Create(ctx, &models.Restaurant{
		ID: restaurantID, OwnerID: userID, Name: "Restaurant " + restaurantID,
	}))
	return token
}

func (e *testEnv) menuItem(id, restaurantID string, price int64) {
	e.t.Helper()
	require.NoError(e.t, e.db.MenuItems().Create(context.Background(), &models.MenuItem{
		ID: id, RestaurantID: restaurantID, Name: "Dish " + id, Category: "Main Course",
		Price: decimal.NewFromInt(price), IsAvailable: true, ImageURL: models.DefaultMenuImage,
	}))
}

func errorMessage(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestSignUpAndSignIn(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(http.MethodPost, "/api/v1/auth/signup", "", signUpRequest{
		Email: "asha@example.com", Password: "secret1", FullName: "Asha", Role: models.RoleCustomer,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = e.do(http.MethodPost, "/api/v1/auth/signup", "", signUpRequest{
		Email: "asha@example.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/v1/auth/signin", "", credentials{Email: "asha@example.com", Password: "nope123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = e.do(http.MethodPost, "/api/v1/auth/signin", "", credentials{Email: "asha@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Token   string          `json:"token"`
		Session session.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, models.RoleCustomer, out.Session.Role)

	resp, _ = e.do(http.MethodGet, "/api/v1/me", out.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/v1/auth/signout", out.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/api/v1/me", out.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWeakPasswordRejected(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(http.MethodPost, "/api/v1/auth/signup", "", signUpRequest{Email: "a@example.com", Password: "123"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.ErrWeakPassword.Error(), errorMessage(t, body)["error"])
}

func TestCartRequiresSession(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCartSingleRestaurant(t *testing.T) {
	e := newTestEnv(t)
	e.owner("r1@example.com", "r1")
	e.owner("r2@example.com", "r2")
	e.menuItem("m1", "r1", 50)
	e.menuItem("m2", "r2", 80)
	token, _ := e.signUp("c@example.com", models.RoleCustomer)

	resp, body := e.do(http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{MenuItemID: "m1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	resp, _ = e.do(http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{MenuItemID: "m1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.do(http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{MenuItemID: "m2"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, cart.ErrDifferentRestaurant.Error(), errorMessage(t, body)["error"])

	_, body = e.do(http.MethodGet, "/api/v1/cart", token, nil)
	var view cartView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 2, view.TotalItems)
	assert.Equal(t, "r1", view.RestaurantID)
	assert.Equal(t, "Restaurant r1", view.RestaurantName)

	resp, body = e.do(http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{MenuItemID: "m2", ConfirmReplace: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.TotalItems)
	assert.Equal(t, "r2", view.RestaurantID)

	_, body = e.do(http.MethodPost, "/api/v1/cart/items/m2/decrease", token, nil)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.TotalItems)

	_, body = e.do(http.MethodDelete, "/api/v1/cart/items/m2", token, nil)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
}

func fillCart(t *testing.T, e *testEnv, token string, orderType models.OrderType) {
	t.Helper()
	// 2 x 50 + 1 x 100
	for _, id := range []string{"m1", "m1", "m2"} {
		resp, body := e.do(http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{MenuItemID: id, OrderType: orderType})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}
}

func TestCheckoutDeliveryCOD(t *testing.T) {
	e := newTestEnv(t)
	e.owner("r1@example.com", "r1")
	e.menuItem("m1", "r1", 50)
	e.menuItem("m2", "r1", 100)
	token, userID := e.signUp("c@example.com", models.RoleCustomer)
	fillCart(t, e, token, models.OrderTypeDelivery)

	sub := e.hub.Subscribe(realtime.Filter{Table: realtime.TableOrders, RestaurantID: "r1"})
	defer sub.Close()

	resp, body := e.do(http.MethodPost, "/api/v1/checkout", token, checkout.Form{
		DeliveryAddress: "12 MG Road", PaymentMethod: models.PaymentCOD,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "mobile_number", errorMessage(t, body)["field"])
	orders, _ := e.db.Orders().GetByUserID(context.Background(), userID)
	assert.Empty(t, orders)

	resp, body = e.do(http.MethodPost, "/api/v1/checkout", token, checkout.Form{
		DeliveryAddress: "12 MG Road", Phone: "9876543210", PaymentMethod: models.PaymentCOD,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var order models.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(250)), order.TotalAmount.String())
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	select {
	case ev := <-sub.C:
		assert.Equal(t, realtime.EventInsert, ev.Type)
	default:
		t.Fatal("new order was not published")
	}

	_, body = e.do(http.MethodGet, "/api/v1/cart", token, nil)
	var view cartView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 0, view.TotalItems)

	resp, body = e.do(http.MethodGet, "/api/v1/orders/mine", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []models.Order
	require.NoError(t, json.Unmarshal(body, &mine))
	assert.Len(t, mine, 1)
}

func TestCheckoutUPIVerification(t *testing.T) {
	e := newTestEnv(t)
	e.owner("r1@example.com", "r1")
	e.menuItem("m1", "r1", 50)
	e.menuItem("m2", "r1", 100)
	token, _ := e.signUp("c@example.com", models.RoleCustomer)
	fillCart(t, e, token, models.OrderTypePickup)

	form := checkout.Form{Phone: "1", PaymentMethod: models.PaymentUPI, UPIID: "c@upi"}
	resp, body := e.do(http.MethodPost, "/api/v1/checkout", token, form)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	var view checkoutView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, checkout.StateAwaitingVerification, view.State)
	assert.True(t, view.Quote.Total.Equal(decimal.NewFromInt(210)))

	form.TransactionID = "123"
	resp, body = e.do(http.MethodPost, "/api/v1/checkout", token, form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "upi_transaction_id", errorMessage(t, body)["field"])

	form.TransactionID = "UPI123456"
	resp, body = e.do(http.MethodPost, "/api/v1/checkout", token, form)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var order models.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)

	_, body = e.do(http.MethodGet, "/api/v1/checkout", token, nil)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, checkout.StateCollectingDetails, view.State)
}

func placeOrder(t *testing.T, e *testEnv, restaurantID string) *models.Order {
	t.Helper()
	o := &models.Order{
		ID: "o-" + restaurantID, RestaurantID: restaurantID, UserID: "u1",
		Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending,
		Type: models.OrderTypePickup, PaymentMethod: models.PaymentCOD, TotalAmount: decimal.NewFromInt(100),
	}
	require.NoError(t, e.db.Orders().Create(context.Background(), o))
	return o
}

func TestOrderStatusLifecycle(t *testing.T) {
	e := newTestEnv(t)
	ownerToken := e.owner("r1@example.com", "r1")
	otherOwner := e.owner("r2@example.com", "r2")
	customer, _ := e.signUp("c@example.com", models.RoleCustomer)
	o := placeOrder(t, e, "r1")
	path := "/api/v1/orders/" + o.ID + "/status"

	resp, _ := e.do(http.MethodPatch, path, customer, map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(http.MethodPatch, path, otherOwner, map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(http.MethodPatch, path, ownerToken, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(http.MethodPatch, path, ownerToken, map[string]string{"status": "ready"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	sub := e.hub.Subscribe(realtime.Filter{Table: realtime.TableOrders, RestaurantID: "r1"})
	defer sub.Close()

	resp, body := e.do(http.MethodPatch, path, ownerToken, map[string]string{"status": "preparing"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated models.Order
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, models.OrderStatusPreparing, updated.Status)

	ev := <-sub.C
	assert.Equal(t, realtime.EventUpdate, ev.Type)
	assert.Contains(t, e.audit.Names(), events.OrderStatusChanged)

	resp, _ = e.do(http.MethodPatch, path, ownerToken, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = e.do(http.MethodPatch, "/api/v1/orders/"+o.ID+"/payment", ownerToken, map[string]string{"payment_status": "paid"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, models.OrderStatusPreparing, updated.Status)
}

func TestRestaurantOrdersOnlyForItsOwner(t *testing.T) {
	e := newTestEnv(t)
	ownerToken := e.owner("r1@example.com", "r1")
	e.owner("r2@example.com", "r2")
	placeOrder(t, e, "r1")

	resp, body := e.do(http.MethodGet, "/api/v1/restaurants/r1/orders", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(body, &orders))
	assert.Len(t, orders, 1)

	resp, _ = e.do(http.MethodGet, "/api/v1/restaurants/r2/orders", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMenuManagement(t *testing.T) {
	e := newTestEnv(t)
	ownerToken := e.owner("r1@example.com", "r1")
	customer, _ := e.signUp("c@example.com", models.RoleCustomer)

	resp, _ := e.do(http.MethodPost, "/api/v1/menu", customer, map[string]interface{}{"name": "Dosa"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/v1/menu", ownerToken, map[string]interface{}{"name": "Dosa", "category": "Breakfast"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(http.MethodPost, "/api/v1/menu", ownerToken, map[string]interface{}{
		"name": "Dosa", "category": "Breakfast", "price": 90, "description": "Crisp",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var item models.MenuItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, models.DefaultMenuImage, item.ImageURL)
	assert.True(t, item.IsAvailable)
	assert.Equal(t, "r1", item.RestaurantID)

	// a later toggle must not move any timestamp
	time.Sleep(5 * time.Millisecond)
	resp, body = e.do(http.MethodPost, "/api/v1/menu/"+item.ID+"/toggle", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var toggled models.MenuItem
	require.NoError(t, json.Unmarshal(body, &toggled))
	assert.False(t, toggled.IsAvailable)
	assert.Equal(t, "Dosa", toggled.Name)
	assert.Equal(t, "Crisp", toggled.Description)
	assert.True(t, toggled.Price.Equal(decimal.NewFromInt(90)))
	assert.True(t, toggled.CreatedAt.Equal(item.CreatedAt))
	assert.True(t, toggled.UpdatedAt.Equal(item.UpdatedAt))

	stored, err := e.db.MenuItems().GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(item.UpdatedAt))

	resp, body = e.do(http.MethodPut, "/api/v1/menu/"+item.ID, ownerToken, map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = e.do(http.MethodPut, "/api/v1/menu/"+item.ID, ownerToken, map[string]interface{}{"price": 95})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = e.do(http.MethodGet, "/api/v1/restaurants/r1/menu", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var menu []models.MenuItem
	require.NoError(t, json.Unmarshal(body, &menu))
	require.Len(t, menu, 1)
	assert.True(t, menu[0].Price.Equal(decimal.NewFromInt(95)))
	assert.False(t, menu[0].IsAvailable)

	resp, _ = e.do(http.MethodDelete, "/api/v1/menu/"+item.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(http.MethodDelete, "/api/v1/menu/"+item.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, []string{
		events.MenuItemCreated, events.MenuItemToggled, events.MenuItemUpdated, events.MenuItemDeleted,
	}, e.audit.Names())
}

func TestMenuImageUpload(t *testing.T) {
	e := newTestEnv(t)
	ownerToken := e.owner("r1@example.com", "r1")
	e.menuItem("m1", "r1", 50)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="dish.png"`)
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/menu/m1/image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var item models.MenuItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Contains(t, item.ImageURL, "http://localhost/media/menu/r1/")
}

func TestRestaurantFilters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	for _, r := range []*models.Restaurant{
		{ID: "a", Name: "A", Lat: 12.97, Lng: 77.59, Rating: 4.1, IsPopular: true},
		{ID: "b", Name: "B", Lat: 13.08, Lng: 80.27, Rating: 4.8, IsPopular: true, Offer: "20% off"},
		{ID: "c", Name: "C", Lat: 12.98, Lng: 77.60, Rating: 3.9},
	} {
		require.NoError(t, e.db.Restaurants().Create(ctx, r))
	}

	list := func(query string) []string {
		resp, body := e.do(http.MethodGet, "/api/v1/restaurants"+query, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		var rs []models.Restaurant
		require.NoError(t, json.Unmarshal(body, &rs))
		ids := make([]string, len(rs))
		for i, r := range rs {
			ids[i] = r.ID
		}
		return ids
	}

	assert.Equal(t, []string{"a", "b", "c"}, list(""))
	assert.Equal(t, []string{"b", "a"}, list("?filter=popular"))
	assert.Equal(t, []string{"b"}, list("?filter=offers"))
	assert.Equal(t, []string{"c", "a", "b"}, list("?filter=nearby&lat=12.985&lng=77.605"))

	resp, _ := e.do(http.MethodGet, "/api/v1/restaurants?filter=nearby", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalculateDistance(t *testing.T) {
	// Bengaluru to Chennai is roughly 290 km.
	d := calculateDistance(12.9716, 77.5946, 13.0827, 80.2707)
	assert.InDelta(t, 290, d, 10)
	assert.Zero(t, calculateDistance(1, 1, 1, 1))
}

func TestChangeFeedAuthorization(t *testing.T) {
	e := newTestEnv(t)
	ownerToken := e.owner("r1@example.com", "r1")
	e.owner("r2@example.com", "r2")
	customer, _ := e.signUp("c@example.com", models.RoleCustomer)

	status := func(query string) int {
		resp, _ := e.do(http.MethodGet, "/ws/changes"+query, "", nil)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, status("?table=users"))
	assert.Equal(t, http.StatusBadRequest, status("?table=orders"))
	assert.Equal(t, http.StatusUnauthorized, status("?table=orders&restaurant_id=r1"))
	assert.Equal(t, http.StatusForbidden, status("?table=orders&restaurant_id=r1&token="+customer))
	assert.Equal(t, http.StatusForbidden, status("?table=orders&restaurant_id=r2&token="+ownerToken))
	// authorized requests still have to be websocket upgrades
	assert.Equal(t, http.StatusUpgradeRequired, status("?table=orders&restaurant_id=r1&token="+ownerToken))
	assert.Equal(t, http.StatusUpgradeRequired, status("?table=menu_items&restaurant_id=r1"))
}
