package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/prefs"
	"storefront/internal/realtime"
	"storefront/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const gatewayOrderID = "order_GW1"

type fakeGateway struct{}

func (fakeGateway) CreateOrder(_ context.Context, req payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	return &payment.GatewayOrder{ID: gatewayOrderID, Amount: req.AmountMinorUnits, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (fakeGateway) KeyID() string { return "rzp_test_key" }

type testAPI struct {
	t        *testing.T
	router   chi.Router
	tokens   *auth.JWTVerifier
	signer   *payment.Verifier
	products *mockProductRepository
	carts    *cart.Registry
	streams  *realtime.Registry
	feed     mockFeed
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	products := newMockProductRepository()
	orders := &mockOrderRepository{products: products}
	addresses := &mockAddressRepository{}
	carts := cart.NewRegistry()
	streams := realtime.NewRegistry()
	t.Cleanup(streams.Close)
	feed := mockFeed{lose: make(map[realtime.Topic]bool)}

	tokens := auth.NewJWTVerifier("test-secret")
	signer := payment.NewVerifier("gateway-secret")
	policy := checkout.Policy{
		DeliveryFee:    decimal.NewFromInt(50),
		PlatformFee:    decimal.NewFromInt(20),
		TaxPercentage:  decimal.NewFromInt(18),
		Currency:       "INR",
		CurrencySymbol: "₹",
		DeliveryDays:   5,
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	catalog := service.NewCatalogService(products, mockCategoryRepository{}, mockBannerRepository{})
	orchestrator := checkout.NewOrchestrator(carts, addresses, orders, fakeGateway{}, signer, policy, logger)

	authMW := middleware.AuthMiddleware(tokens, logger)
	adminMW := middleware.RequireAdmin(logger)
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	NewCatalogHandler(catalog, logger).RegisterRoutes(r, authMW, adminMW)
	NewCartHandler(carts, catalog, logger).RegisterRoutes(r, authMW)
	NewCheckoutHandler(orchestrator, carts, logger).RegisterRoutes(r, authMW, passthrough)
	NewOrderHandler(service.NewOrderService(orders, feed, 5, "₹", logger), streams, logger).RegisterRoutes(r, authMW, adminMW)
	NewAddressHandler(service.NewAddressService(addresses, feed, logger), streams, logger).RegisterRoutes(r, authMW)
	NewAccountHandler(prefs.NewStore(rdb, "prefs-secret"), logger).RegisterRoutes(r, authMW)

	return &testAPI{t: t, router: r, tokens: tokens, signer: signer, products: products, carts: carts, streams: streams, feed: feed}
}

func (a *testAPI) token(userID string, role auth.Role) string {
	a.t.Helper()
	tok, err := a.tokens.Issue(auth.Identity{UserID: userID, Email: userID + "@example.com", Role: role}, time.Hour)
	if err != nil {
		a.t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) seed(p *domain.Product) *domain.Product {
	p.SyncLegacyPricing()
	if err := a.products.Create(context.Background(), p); err != nil {
		a.t.Fatalf("seed product: %v", err)
	}
	return p
}

func shirt(stock int) *domain.Product {
	return &domain.Product{
		ID:          "shirt",
		Title:       "Linen Shirt",
		IsPublished: true,
		Media:       []string{"https://cdn.example.com/shirt.jpg"},
		Variants: []domain.Variant{
			{Size: "M", Color: "blue", Price: decimal.NewFromInt(500), OriginalPrice: decimal.NewFromInt(800), Stock: stock},
			{Size: "L", Color: "blue", Price: decimal.NewFromInt(550), OriginalPrice: decimal.NewFromInt(800), Stock: stock},
		},
	}
}

type actionBody struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) actionBody {
	t.Helper()
	var body actionBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode action result: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestCatalogHidesDrafts(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(5))
	draft := shirt(5)
	draft.ID, draft.IsPublished = "draft", false
	api.seed(draft)

	rec := api.do(http.MethodGet, "/api/products", "", nil)
	var page ProductPage
	json.NewDecoder(rec.Body).Decode(&page)
	if rec.Code != http.StatusOK || page.Total != 1 || page.Products[0].ID != "shirt" {
		t.Errorf("public listing = %d %+v", rec.Code, page)
	}

	if rec := api.do(http.MethodGet, "/api/products/draft", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("draft product status = %d, want 404", rec.Code)
	}

	if rec := api.do(http.MethodGet, "/api/admin/products", api.token("u1", auth.RoleCustomer), nil); rec.Code != http.StatusForbidden {
		t.Errorf("customer admin listing status = %d, want 403", rec.Code)
	}
	rec = api.do(http.MethodGet, "/api/admin/products", api.token("admin", auth.RoleAdmin), nil)
	json.NewDecoder(rec.Body).Decode(&page)
	if page.Total != 2 {
		t.Errorf("admin listing total = %d, want 2", page.Total)
	}
}

func TestProductDisplayResolvesSelection(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(5))

	tests := []struct {
		query     string
		wantPrice string
		inStock   bool
	}{
		{"", "500", true},
		{"?size=L&color=blue", "550", true},
		{"?size=XL&color=blue", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := api.do(http.MethodGet, "/api/products/shirt"+tt.query, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var display service.ProductDisplay
			json.NewDecoder(rec.Body).Decode(&display)
			if display.InStock != tt.inStock {
				t.Errorf("InStock = %v, want %v", display.InStock, tt.inStock)
			}
			if tt.wantPrice == "" {
				if display.Selected != nil {
					t.Errorf("Selected = %+v, want none", display.Selected)
				}
				return
			}
			if display.Selected == nil || !display.Selected.Price.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("Selected = %+v, want price %s", display.Selected, tt.wantPrice)
			}
		})
	}
}

func TestCartRequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)
	if rec := api.do(http.MethodGet, "/api/cart", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCartStockLimit(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(2))
	tok := api.token("u1", auth.RoleCustomer)
	add := CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 2}

	rec := api.do(http.MethodPost, "/api/cart/items", tok, add)
	if body := decodeAction(t, rec); rec.Code != http.StatusOK || !body.Success {
		t.Fatalf("add = %d %+v", rec.Code, body)
	}

	add.Quantity = 1
	rec = api.do(http.MethodPost, "/api/cart/items", tok, add)
	body := decodeAction(t, rec)
	if rec.Code != http.StatusConflict || body.Success || body.Error == "" {
		t.Errorf("add past stock = %d %+v, want 409 with an error", rec.Code, body)
	}
	if it, _ := api.carts.For("u1").Item("shirt", "M", "blue"); it.Quantity != 2 {
		t.Errorf("quantity after rejected add = %d, want 2", it.Quantity)
	}

	rec = api.do(http.MethodPatch, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 3})
	if rec.Code != http.StatusConflict {
		t.Errorf("raise past stock status = %d, want 409", rec.Code)
	}

	rec = api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "XL", Color: "red", Quantity: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown variant status = %d, want 400", rec.Code)
	}

	rec = api.do(http.MethodPatch, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 0})
	body = decodeAction(t, rec)
	var view CartView
	json.Unmarshal(body.Data, &view)
	if !body.Success || len(view.Items) != 0 || !api.carts.For("u1").IsEmpty() {
		t.Errorf("quantity 0 did not remove the line: %+v", view)
	}
}

func TestCartCannotRaiseDraftProduct(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(10))
	tok := api.token("u1", auth.RoleCustomer)
	line := CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 2}
	if rec := api.do(http.MethodPost, "/api/cart/items", tok, line); rec.Code != http.StatusOK {
		t.Fatalf("add = %d %s", rec.Code, rec.Body.String())
	}

	api.products.mu.Lock()
	api.products.products["shirt"].IsPublished = false
	api.products.mu.Unlock()

	line.Quantity = 3
	rec := api.do(http.MethodPatch, "/api/cart/items", tok, line)
	if body := decodeAction(t, rec); rec.Code != http.StatusNotFound || body.Success {
		t.Errorf("raise on draft = %d %+v, want 404", rec.Code, body)
	}
	if it, _ := api.carts.For("u1").Item("shirt", "M", "blue"); it.Quantity != 2 {
		t.Errorf("quantity after rejected raise = %d, want 2", it.Quantity)
	}

	line.Quantity = 1
	if rec := api.do(http.MethodPatch, "/api/cart/items", tok, line); rec.Code != http.StatusOK {
		t.Errorf("lowering a draft line = %d, want 200", rec.Code)
	}
}

func TestCartTotalsAndFavorites(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(10))
	tok := api.token("u1", auth.RoleCustomer)

	api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 2})
	api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "L", Color: "blue", Quantity: 1})

	rec := api.do(http.MethodGet, "/api/cart", tok, nil)
	var view CartView
	json.NewDecoder(rec.Body).Decode(&view)
	if !view.Total.Equal(decimal.NewFromInt(1550)) || view.Count != 3 || len(view.Items) != 2 {
		t.Errorf("cart = %+v, want total 1550 over 3 units", view)
	}

	rec = api.do(http.MethodPost, "/api/favorites/shirt", tok, nil)
	var fav struct {
		Favorite bool `json:"favorite"`
	}
	json.NewDecoder(rec.Body).Decode(&fav)
	if !fav.Favorite {
		t.Error("first toggle did not favorite")
	}

	api.do(http.MethodDelete, "/api/cart", tok, nil)
	if !api.carts.For("u1").IsEmpty() || !api.carts.For("u1").IsFavorite("shirt") {
		t.Error("clearing the cart should keep favorites")
	}
}

func (a *testAPI) createAddress(token string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/addresses", token, AddressRequest{
		Name: "Asha", Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001", Phone: "9820000000",
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create address = %d %s", rec.Code, rec.Body.String())
	}
	var address domain.Address
	json.NewDecoder(rec.Body).Decode(&address)
	if !address.IsDefault {
		a.t.Error("first address is not the default")
	}
	return address.ID
}

func TestCheckoutCashOnDelivery(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(5))
	tok := api.token("u1", auth.RoleCustomer)
	addressID := api.createAddress(tok)
	api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 2})

	rec := api.do(http.MethodPost, "/api/checkout", tok, checkout.BeginRequest{AddressID: addressID, PaymentMethod: domain.PaymentCOD})
	body := decodeAction(t, rec)
	if rec.Code != http.StatusCreated || !body.Success {
		t.Fatalf("begin = %d %+v", rec.Code, body)
	}
	var session checkout.Session
	json.Unmarshal(body.Data, &session)
	if session.State != checkout.StateReviewing || session.Payment != nil {
		t.Errorf("session = %+v, want reviewing with no payment options", session)
	}
	if !session.Totals.FinalTotal.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("final total = %s, want 1250", session.Totals.FinalTotal)
	}

	rec = api.do(http.MethodPost, "/api/checkout/"+session.ID+"/confirm", tok, nil)
	body = decodeAction(t, rec)
	if rec.Code != http.StatusOK || !body.Success {
		t.Fatalf("confirm = %d %+v", rec.Code, body)
	}
	var order domain.Order
	json.Unmarshal(body.Data, &order)
	if order.Status != domain.StatusPending || !strings.HasPrefix(order.GatewayOrderID, "order_") {
		t.Errorf("order = %+v", order)
	}
	if !api.carts.For("u1").IsEmpty() {
		t.Error("cart not cleared after the order was placed")
	}
	if p, _ := api.products.FindByID(context.Background(), "shirt"); p.Variants[0].Stock != 3 {
		t.Errorf("stock = %d, want 3", p.Variants[0].Stock)
	}

	rec = api.do(http.MethodPost, "/api/checkout/"+session.ID+"/confirm", tok, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second confirm status = %d, want 409", rec.Code)
	}

	rec = api.do(http.MethodGet, "/api/orders", tok, nil)
	var orders []service.OrderView
	json.NewDecoder(rec.Body).Decode(&orders)
	if len(orders) != 1 || orders[0].StatusColor == "" || orders[0].ItemCount != 2 {
		t.Errorf("orders = %+v", orders)
	}
}

func TestCheckoutOnlinePayment(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(5))
	tok := api.token("u1", auth.RoleCustomer)
	addressID := api.createAddress(tok)

	begin := func() checkout.Session {
		t.Helper()
		api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 1})
		rec := api.do(http.MethodPost, "/api/checkout", tok, checkout.BeginRequest{AddressID: addressID, PaymentMethod: domain.PaymentOnline})
		body := decodeAction(t, rec)
		var s checkout.Session
		json.Unmarshal(body.Data, &s)
		if s.Payment == nil || s.Payment.OrderID != gatewayOrderID || s.Payment.Key != "rzp_test_key" {
			t.Fatalf("payment options = %+v", s.Payment)
		}
		return s
	}

	s := begin()
	rec := api.do(http.MethodPost, "/api/checkout/"+s.ID+"/confirm", tok, map[string]bool{"cancelled": true})
	body := decodeAction(t, rec)
	if rec.Code != http.StatusPaymentRequired || body.Success {
		t.Errorf("cancelled payment = %d %+v, want 402", rec.Code, body)
	}
	if api.carts.For("u1").IsEmpty() {
		t.Error("cart cleared after a cancelled payment")
	}

	s = begin()
	forged := payment.Result{PaymentID: "pay_1", GatewayOrderID: gatewayOrderID, Signature: "00"}
	if rec := api.do(http.MethodPost, "/api/checkout/"+s.ID+"/confirm", tok, forged); rec.Code != http.StatusPaymentRequired {
		t.Errorf("forged signature status = %d, want 402", rec.Code)
	}

	s = begin()
	paid := payment.Result{PaymentID: "pay_2", GatewayOrderID: gatewayOrderID, Signature: api.signer.Sign(gatewayOrderID, "pay_2")}
	rec = api.do(http.MethodPost, "/api/checkout/"+s.ID+"/confirm", tok, paid)
	body = decodeAction(t, rec)
	var order domain.Order
	json.Unmarshal(body.Data, &order)
	if !body.Success || order.PaymentID != "pay_2" || order.GatewayOrderID != gatewayOrderID {
		t.Errorf("paid confirm = %+v, order %+v", body, order)
	}
}

func TestCheckoutBeginValidation(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(5))
	tok := api.token("u1", auth.RoleCustomer)
	addressID := api.createAddress(tok)

	tests := []struct {
		name     string
		req      checkout.BeginRequest
		fillCart bool
		want     string
	}{
		{"missing method", checkout.BeginRequest{AddressID: addressID}, true, checkout.ErrPaymentMethodRequired.Error()},
		{"unknown method", checkout.BeginRequest{AddressID: addressID, PaymentMethod: "upi"}, true, checkout.ErrInvalidPaymentMethod.Error()},
		{"missing address", checkout.BeginRequest{PaymentMethod: domain.PaymentCOD}, true, checkout.ErrAddressRequired.Error()},
		{"foreign address", checkout.BeginRequest{AddressID: "nope", PaymentMethod: domain.PaymentCOD}, true, checkout.ErrAddressNotFound.Error()},
		{"empty cart", checkout.BeginRequest{AddressID: addressID, PaymentMethod: domain.PaymentCOD}, false, checkout.ErrEmptyCart.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.carts.For("u1").ClearCart()
			if tt.fillCart {
				api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 1})
			}
			rec := api.do(http.MethodPost, "/api/checkout", tok, tt.req)
			body := decodeAction(t, rec)
			if rec.Code != http.StatusBadRequest || body.Success || body.Error != tt.want {
				t.Errorf("begin = %d %+v, want 400 %q", rec.Code, body, tt.want)
			}
		})
	}
}

func TestAdminStatusUpdate(t *testing.T) {
	api := newTestAPI(t)
	api.seed(shirt(5))
	tok := api.token("u1", auth.RoleCustomer)
	admin := api.token("admin", auth.RoleAdmin)
	addressID := api.createAddress(tok)
	api.do(http.MethodPost, "/api/cart/items", tok, CartItemRequest{ProductID: "shirt", Size: "M", Color: "blue", Quantity: 1})
	rec := api.do(http.MethodPost, "/api/checkout", tok, checkout.BeginRequest{AddressID: addressID, PaymentMethod: domain.PaymentCOD})
	var session checkout.Session
	json.Unmarshal(decodeAction(t, rec).Data, &session)
	rec = api.do(http.MethodPost, "/api/checkout/"+session.ID+"/confirm", tok, nil)
	var order domain.Order
	json.Unmarshal(decodeAction(t, rec).Data, &order)

	path := "/api/admin/orders/u1/" + order.ID + "/status"
	if rec := api.do(http.MethodPatch, path, tok, StatusRequest{Status: domain.StatusShipped}); rec.Code != http.StatusForbidden {
		t.Errorf("customer status change = %d, want 403", rec.Code)
	}
	if rec := api.do(http.MethodPatch, path, admin, StatusRequest{Status: "lost"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", rec.Code)
	}

	rec = api.do(http.MethodPatch, path, admin, StatusRequest{Status: domain.StatusDelivered})
	var view service.OrderView
	json.NewDecoder(rec.Body).Decode(&view)
	if rec.Code != http.StatusOK || view.Status != domain.StatusDelivered {
		t.Errorf("deliver = %d %+v", rec.Code, view)
	}
	if rec := api.do(http.MethodPatch, path, admin, StatusRequest{Status: domain.StatusCancelled}); rec.Code != http.StatusConflict {
		t.Errorf("cancel after delivery = %d, want 409", rec.Code)
	}

	rec = api.do(http.MethodGet, "/api/admin/orders/statuses?current=shipped", admin, nil)
	var options []service.StatusOption
	json.NewDecoder(rec.Body).Decode(&options)
	for _, o := range options {
		if o.Status == domain.StatusPending && !o.Disabled {
			t.Error("pending is selectable for a shipped order")
		}
	}
}

func TestOrderStreamSendsSnapshot(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/orders/stream", nil)
	req.Header.Set("Authorization", "Bearer "+api.token("u1", auth.RoleCustomer))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() && data == "" {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			event = name
		}
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			data = payload
		}
	}
	if event != "snapshot" || data != "[]" {
		t.Errorf("first event = %q %q, want snapshot []", event, data)
	}
	if api.streams.Count() != 1 {
		t.Errorf("open subscriptions = %d, want 1", api.streams.Count())
	}
}

func TestStreamEndsWhenSubscriptionIsLost(t *testing.T) {
	api := newTestAPI(t)
	api.feed.lose[realtime.AddressesTopic("u1")] = true
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/addresses/stream", nil)
	req.Header.Set("Authorization", "Bearer "+api.token("u1", auth.RoleCustomer))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	// the body ends after the error event; a hanging stream trips the timeout
	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	if ctx.Err() != nil {
		t.Fatal("stream stayed open after the subscription was lost")
	}
	if len(events) != 2 || events[0] != "snapshot" || events[1] != "error" {
		t.Errorf("events = %v, want [snapshot error]", events)
	}
	if api.streams.Count() != 0 {
		t.Errorf("open subscriptions = %d, want 0", api.streams.Count())
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token("u1", auth.RoleCustomer)

	rec := api.do(http.MethodGet, "/api/me/preferences", tok, nil)
	var got prefs.Preferences
	json.NewDecoder(rec.Body).Decode(&got)
	if rec.Code != http.StatusOK || got != (prefs.Preferences{}) {
		t.Errorf("initial preferences = %d %+v", rec.Code, got)
	}

	want := PreferencesRequest{OnboardingCompleted: true, LastLocationID: "loc-7"}
	if rec := api.do(http.MethodPut, "/api/me/preferences", tok, want); rec.Code != http.StatusOK {
		t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(http.MethodGet, "/api/me", tok, nil)
	var profile Profile
	json.NewDecoder(rec.Body).Decode(&profile)
	if profile.UserID != "u1" || !profile.Preferences.OnboardingCompleted || profile.Preferences.LastLocationID != "loc-7" {
		t.Errorf("profile = %+v", profile)
	}
}
