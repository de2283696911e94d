package api_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Eblazecode/Agrolinkernew/internal/api"
	"github.com/Eblazecode/Agrolinkernew/internal/auth"
	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
	"github.com/Eblazecode/Agrolinkernew/internal/events"
	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/internal/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/admin"
	pkgstore "github.com/Eblazecode/Agrolinkernew/pkg/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/testutil"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
	"github.com/Eblazecode/Agrolinkernew/pkg/webhook"
)

const testSecret = "test-secret-0123456789"

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type twinFixture struct {
	store  *store.MemoryStore
	issuer *auth.Issuer
	clock  *pkgstore.Clock
	hooks  *webhook.Dispatcher
	tc     *testutil.TwinClient
	admin  *testutil.AdminClient
}

func setupTwin(t *testing.T, sleep func(time.Duration)) twinFixture {
	t.Helper()
	clk := pkgstore.NewFrozenClock(epoch)
	hooks := webhook.NewDispatcher(webhook.Config{
		Signer:     webhook.HMACSigner{},
		MaxRetries: 1,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	memStore, err := store.New(store.Config{
		Catalog:   catalog.Default(),
		Clock:     clk,
		Delays:    store.DefaultDelays,
		Sleep:     sleep,
		Publisher: events.WebhookPublisher{Dispatcher: hooks},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Tokens follow wall time so advancing the simulated clock cannot expire
	// them.
	issuer, err := auth.NewIssuer(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	twin := twincore.New(twincore.Config{Name: "agrotwin-test"}, twincore.WithLogOutput(io.Discard))
	handler := api.NewHandler(memStore, twin.Middleware(), issuer, twin.Logger)
	handler.Routes(twin.Router)
	adminHandler := admin.NewHandler(api.AdminState{Store: memStore}, twin.Middleware(), clk)
	adminHandler.SetFlusher(hooks)
	adminHandler.SetConfig(api.RuntimeConfig{Server: twin, Store: memStore, Webhooks: hooks})
	adminHandler.Routes(twin.Router)

	srv := httptest.NewServer(twin.Router)
	t.Cleanup(srv.Close)
	tc := testutil.NewTwinClient(t, srv)
	return twinFixture{store: memStore, issuer: issuer, clock: clk, hooks: hooks, tc: tc, admin: testutil.NewAdminClient(tc)}
}

// investor opens a session and signs in as the seeded investor.
func investor(t *testing.T, f twinFixture) *testutil.TwinClient {
	t.Helper()
	client, _ := f.tc.OpenSession()
	client.Post("/v1/session/login", map[string]string{
		"email":    "investor@agrolinker.com",
		"password": "anything",
	}).AssertStatus(http.StatusOK)
	return client
}

func TestSessionLifecycle(t *testing.T) {
	f := setupTwin(t, nil)

	client, id := f.tc.OpenSession()
	m := client.Get("/v1/session").AssertStatus(http.StatusOK).JSONMap()
	if m["session_id"] != id || m["authenticated"] != false || m["wallet_balance"] != float64(0) {
		t.Errorf("unexpected anonymous session %+v", m)
	}

	m = client.Post("/v1/session/login", map[string]string{
		"email": "investor@agrolinker.com", "password": "x",
	}).AssertStatus(http.StatusOK).JSONMap()
	if m["authenticated"] != true || m["wallet_balance"] != float64(500000) || m["unread_count"] != float64(1) {
		t.Errorf("unexpected session after login %+v", m)
	}
	if got := f.clock.Now().Sub(epoch); got != time.Second {
		t.Errorf("login should take one simulated second, took %v", got)
	}

	m = client.Post("/v1/session/logout", nil).AssertStatus(http.StatusOK).JSONMap()
	if m["authenticated"] != false || m["wallet_balance"] != float64(0) {
		t.Errorf("unexpected session after logout %+v", m)
	}

	client.Delete("/v1/session").AssertStatus(http.StatusNoContent)
	client.Get("/v1/session").AssertError(http.StatusUnauthorized, "session_not_found")
}

func TestTokenRequired(t *testing.T) {
	f := setupTwin(t, nil)

	f.tc.Get("/v1/wallet").AssertError(http.StatusUnauthorized, "missing_token")
	f.tc.WithToken("not-a-jwt").Get("/v1/wallet").AssertError(http.StatusUnauthorized, "invalid_token")

	other, err := auth.NewIssuer("another-secret-0123456789")
	if err != nil {
		t.Fatal(err)
	}
	forged, _, _ := other.Issue("sess_forged")
	f.tc.WithToken(forged).Get("/v1/wallet").AssertError(http.StatusUnauthorized, "invalid_token")

	// Catalog needs no token.
	f.tc.Get("/v1/catalog/products").AssertStatus(http.StatusOK)
}

func TestLoginRejections(t *testing.T) {
	f := setupTwin(t, nil)
	client, _ := f.tc.OpenSession()

	client.Post("/v1/session/login", map[string]string{"email": "nobody@example.com", "password": "x"}).
		AssertError(http.StatusUnauthorized, "invalid_credentials")
	client.Post("/v1/session/login", map[string]string{"email": "", "password": ""}).
		AssertError(http.StatusUnprocessableEntity, "validation_failed").
		AssertBodyContains(`"fields":["email","password"]`)
	client.Post("/v1/session/login", map[string]any{"email": "a", "shoe_size": 9}).
		AssertError(http.StatusBadRequest, "bad_request")
}

func TestRegister(t *testing.T) {
	f := setupTwin(t, nil)
	client, _ := f.tc.OpenSession()

	m := client.Post("/v1/session/register", map[string]string{
		"name": "Ada Obi", "email": "ada@example.com", "password": "long-enough", "role": "farmer",
	}).AssertStatus(http.StatusCreated).JSONMap()
	if m["wallet_balance"] != float64(100000) {
		t.Errorf("expected registration balance, got %v", m["wallet_balance"])
	}

	other, _ := f.tc.OpenSession()
	other.Post("/v1/session/register", map[string]string{
		"name": "Root", "email": "root@example.com", "password": "long-enough", "role": "admin",
	}).AssertError(http.StatusUnprocessableEntity, "validation_failed")
}

func TestWalletAndInvestments(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	m := client.Post("/v1/investments", map[string]any{"kind": "farm_project", "project_id": "1", "amount": 50000}).
		AssertStatus(http.StatusCreated).JSONMap()
	inv := m["investment"].(map[string]any)
	if inv["status"] != "active" || inv["roi"] != float64(25) {
		t.Errorf("unexpected investment %+v", inv)
	}
	if bal := m["wallet"].(map[string]any)["balance"]; bal != float64(450000) {
		t.Errorf("expected 450000 after investing, got %v", bal)
	}
	id := inv["id"].(string)

	client.Get("/v1/investments/" + id).AssertStatus(http.StatusOK)
	client.Get("/v1/investments/nope").AssertError(http.StatusNotFound, "not_found")
	client.Post("/v1/investments/"+id+"/mature", nil).AssertError(http.StatusConflict, "invalid_transition")

	f.admin.AdvanceTime("8760h").AssertStatus(http.StatusOK)
	client.Post("/v1/investments/"+id+"/mature", nil).AssertStatus(http.StatusOK)
	m = client.Post("/v1/investments/"+id+"/withdraw", nil).AssertStatus(http.StatusOK).JSONMap()
	if m["investment"].(map[string]any)["status"] != "withdrawn" {
		t.Errorf("expected withdrawn investment, got %+v", m)
	}
	if bal := m["wallet"].(map[string]any)["balance"]; bal != float64(512500) {
		t.Errorf("expected principal plus one year of return, got %v", bal)
	}
	client.Post("/v1/investments/"+id+"/withdraw", nil).AssertError(http.StatusConflict, "invalid_transition")

	p := client.Get("/v1/portfolio").AssertStatus(http.StatusOK).JSONMap()
	if p["total_invested"] != float64(50000) || p["roi_earned"] != float64(12500) {
		t.Errorf("unexpected portfolio %+v", p)
	}
}

func TestInvestmentRejections(t *testing.T) {
	f := setupTwin(t, nil)
	anon, _ := f.tc.OpenSession()
	anon.Post("/v1/investments", map[string]any{"project_id": "1", "amount": 50000}).
		AssertError(http.StatusUnauthorized, "not_authenticated")

	client := investor(t, f)
	tests := []struct {
		name   string
		body   map[string]any
		status int
		kind   string
	}{
		{"below minimum", map[string]any{"project_id": "1", "amount": 9999}, 422, "below_minimum"},
		{"insufficient funds", map[string]any{"project_id": "1", "amount": 600000}, 402, "insufficient_funds"},
		{"unknown project", map[string]any{"project_id": "99", "amount": 50000}, 404, "not_found"},
		{"tree above maximum", map[string]any{"kind": "tree", "tree_id": "1", "amount": 500001}, 422, "above_maximum"},
		{"unknown kind", map[string]any{"kind": "bond", "amount": 50000}, 422, "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client.Post("/v1/investments", tt.body).AssertError(tt.status, tt.kind)
		})
	}

	if bal := client.Get("/v1/wallet").JSONMap()["balance"]; bal != float64(500000) {
		t.Errorf("rejections must not touch the wallet, got %v", bal)
	}
}

func TestWalletCreditDebit(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	m := client.Post("/v1/wallet/credit", map[string]any{"amount": 2500}).AssertStatus(http.StatusOK).JSONMap()
	if m["balance"] != float64(502500) || m["formatted"] != "₦502,500" {
		t.Errorf("unexpected wallet %+v", m)
	}
	client.Post("/v1/wallet/debit", map[string]any{"amount": 1_000_000}).AssertError(http.StatusPaymentRequired, "insufficient_funds")
	client.Post("/v1/wallet/credit", map[string]any{"amount": 0}).AssertError(http.StatusUnprocessableEntity, "validation_failed")
}

func TestCartAndCheckout(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	client.Post("/v1/cart/items", map[string]any{"product_id": "1", "quantity": 2}).AssertStatus(http.StatusOK)
	m := client.Post("/v1/cart/items", map[string]any{"product_id": "2"}).AssertStatus(http.StatusOK).JSONMap()
	if m["total"] != float64(2800) || m["item_count"] != float64(3) {
		t.Errorf("unexpected cart %+v", m)
	}
	m = client.Patch("/v1/cart/items/1", map[string]any{"quantity": 5}).AssertStatus(http.StatusOK).JSONMap()
	if m["total"] != float64(5200) {
		t.Errorf("expected 5200 after update, got %v", m["total"])
	}

	client.Post("/v1/cart/checkout", map[string]any{"delivery": map[string]string{"full_name": "Ada"}}).
		AssertError(http.StatusUnprocessableEntity, "validation_failed")

	before := f.clock.Now()
	order := client.Post("/v1/cart/checkout", map[string]any{"delivery": delivery()}).
		AssertStatus(http.StatusCreated).JSONMap()
	if order["total"] != float64(5200+state.DeliveryFee) {
		t.Errorf("unexpected order total %v", order["total"])
	}
	if got := f.clock.Now().Sub(before); got != 2*time.Second {
		t.Errorf("checkout should take two simulated seconds, took %v", got)
	}

	m = client.Get("/v1/cart").JSONMap()
	if m["item_count"] != float64(0) || len(m["items"].([]any)) != 0 {
		t.Errorf("cart not emptied: %+v", m)
	}
	orders := client.Get("/v1/orders").JSONMap()["orders"].([]any)
	if len(orders) != 1 {
		t.Errorf("expected one order, got %d", len(orders))
	}

	client.Post("/v1/cart/checkout", map[string]any{"delivery": delivery()}).AssertError(http.StatusConflict, "empty_cart")
}

func delivery() map[string]string {
	return map[string]string{
		"full_name": "Ada Obi",
		"email":     "ada@example.com",
		"phone":     "+2348000000000",
		"address":   "12 Market Road",
		"city":      "Ikeja",
		"state":     "Lagos",
	}
}

func TestCheckoutIdempotency(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)
	client.Post("/v1/cart/items", map[string]any{"product_id": "1"}).AssertStatus(http.StatusOK)

	headers := map[string]string{"Idempotency-Key": "order-1"}
	first := client.DoWithHeaders("POST", "/v1/cart/checkout", map[string]any{"delivery": delivery()}, headers).
		AssertStatus(http.StatusCreated)
	second := client.DoWithHeaders("POST", "/v1/cart/checkout", map[string]any{"delivery": delivery()}, headers).
		AssertStatus(http.StatusCreated)

	if second.Headers.Get("Idempotent-Replayed") != "true" {
		t.Error("expected replayed response")
	}
	if first.JSONMap()["id"] != second.JSONMap()["id"] {
		t.Error("replay returned a different order")
	}
	if n := len(client.Get("/v1/orders").JSONMap()["orders"].([]any)); n != 1 {
		t.Errorf("expected one order, got %d", n)
	}

	// Same key from another session is a different request.
	other := investor(t, f)
	other.DoWithHeaders("POST", "/v1/cart/checkout", map[string]any{"delivery": delivery()}, headers).
		AssertError(http.StatusConflict, "empty_cart")
}

func TestBusyWhileCheckoutInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	sleep := func(d time.Duration) {
		if d == store.DefaultDelays.Checkout {
			entered <- struct{}{}
			<-release
		}
	}
	f := setupTwin(t, sleep)
	client := investor(t, f)
	client.Post("/v1/cart/items", map[string]any{"product_id": "1"}).AssertStatus(http.StatusOK)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.Post("/v1/cart/checkout", map[string]any{"delivery": delivery()}).AssertStatus(http.StatusCreated)
	}()
	<-entered

	client.Post("/v1/cart/items", map[string]any{"product_id": "2"}).AssertError(http.StatusConflict, "busy")
	client.Get("/v1/cart").AssertStatus(http.StatusOK)

	close(release)
	wg.Wait()
	client.Post("/v1/cart/items", map[string]any{"product_id": "2"}).AssertStatus(http.StatusOK)
}

func TestNotifications(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	m := client.Post("/v1/notifications", map[string]string{"message": "Harvest starts Monday"}).
		AssertStatus(http.StatusCreated).JSONMap()
	if m["unread_count"] != float64(2) {
		t.Errorf("expected 2 unread, got %v", m["unread_count"])
	}
	notes := m["notifications"].([]any)
	id := notes[0].(map[string]any)["id"].(string)

	m = client.Post("/v1/notifications/"+id+"/read", nil).AssertStatus(http.StatusOK).JSONMap()
	if m["unread_count"] != float64(1) {
		t.Errorf("expected 1 unread after marking, got %v", m["unread_count"])
	}
	client.Post("/v1/notifications/missing/read", nil).AssertStatus(http.StatusOK)

	m = client.Delete("/v1/notifications").AssertStatus(http.StatusOK).JSONMap()
	if len(m["notifications"].([]any)) != 0 {
		t.Errorf("expected empty feed, got %+v", m)
	}
}

func TestBookings(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	start := epoch.Add(48 * time.Hour)
	m := client.Post("/v1/bookings/equipment", map[string]any{
		"equipment_id": "1",
		"start_date":   start.Format(time.RFC3339),
		"end_date":     start.Add(72 * time.Hour).Format(time.RFC3339),
	}).AssertStatus(http.StatusCreated).JSONMap()
	booking := m["booking"].(map[string]any)
	if booking["days"] != float64(3) || booking["total"] != float64(135000) {
		t.Errorf("unexpected booking %+v", booking)
	}

	client.Post("/v1/bookings/equipment", map[string]any{
		"equipment_id": "3",
		"start_date":   start.Format(time.RFC3339),
		"end_date":     start.Add(24 * time.Hour).Format(time.RFC3339),
	}).AssertError(http.StatusConflict, "unavailable")

	list := client.Get("/v1/bookings?kind=equipment").AssertStatus(http.StatusOK).JSONMap()
	if len(list["bookings"].([]any)) != 1 {
		t.Errorf("expected one equipment booking, got %+v", list)
	}
	if n := len(client.Get("/v1/bookings?kind=storage").JSONMap()["bookings"].([]any)); n != 0 {
		t.Errorf("expected no storage bookings, got %d", n)
	}
}

func TestWizardFlow(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	m := client.Get("/v1/wizard").AssertStatus(http.StatusOK).JSONMap()
	if m["current_step"] != float64(1) || m["awaiting"] != "farm_size" {
		t.Errorf("unexpected fresh wizard %+v", m)
	}
	client.Post("/v1/wizard/confirm", map[string]string{"farmer_id": "1"}).AssertError(http.StatusConflict, "invalid_transition")

	for _, v := range []string{"5 hectares", "Maize", "Kaduna", "full"} {
		m = client.Post("/v1/wizard/steps", map[string]string{"value": v}).AssertStatus(http.StatusOK).JSONMap()
	}
	if m["completed"] != true {
		t.Fatalf("wizard not completed: %+v", m)
	}
	matches := m["matches"].([]any)
	top := matches[0].(map[string]any)
	if top["id"] != "1" {
		t.Errorf("expected the Maize specialist from Kaduna first, got %+v", top)
	}

	c := client.Post("/v1/wizard/confirm", map[string]string{"farmer_id": "1"}).AssertStatus(http.StatusCreated).JSONMap()
	if c["farmer_name"] != "Adamu Ibrahim" || c["crop"] != "Maize" {
		t.Errorf("unexpected contract %+v", c)
	}
	if n := len(client.Get("/v1/contracts").JSONMap()["contracts"].([]any)); n != 1 {
		t.Errorf("expected one contract, got %d", n)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	f := setupTwin(t, nil)

	products := f.tc.Get("/v1/catalog/products?category=grains").AssertStatus(http.StatusOK).JSONMap()["products"].([]any)
	if len(products) != 2 {
		t.Errorf("expected 2 grain products, got %d", len(products))
	}
	equipment := f.tc.Get("/v1/catalog/equipment?available=true").JSONMap()["equipment"].([]any)
	if len(equipment) != 3 {
		t.Errorf("expected 3 available machines, got %d", len(equipment))
	}
	f.tc.Get("/v1/catalog/projects/99").AssertError(http.StatusNotFound, "not_found")

	proj := f.tc.Get("/v1/catalog/projects/1/projection?amount=100000&years=2").AssertStatus(http.StatusOK).JSONMap()
	if proj["value"] != "150000" || proj["formatted"] != "₦150,000" {
		t.Errorf("unexpected projection %+v", proj)
	}
	f.tc.Get("/v1/catalog/projects/1/projection?amount=abc").AssertError(http.StatusBadRequest, "bad_request")

	tree := f.tc.Get("/v1/catalog/trees/1/projection?amount=10000").AssertStatus(http.StatusOK).JSONMap()
	projections := tree["projections"].([]any)
	if len(projections) != 3 || projections[0].(map[string]any)["value"] != "16000" {
		t.Errorf("unexpected tree projections %+v", projections)
	}

	farmers := f.tc.Get("/v1/catalog/farmers?crop=Rice&location=Kano").JSONMap()["farmers"].([]any)
	if farmers[0].(map[string]any)["name"] != "Musa Bello" {
		t.Errorf("unexpected farmer ranking %+v", farmers)
	}
}

func TestInjectedFault(t *testing.T) {
	f := setupTwin(t, nil)
	client := investor(t, f)

	f.admin.InjectFault("/v1/wallet", map[string]any{"status_code": 503}).AssertStatus(http.StatusOK)
	client.Get("/v1/wallet").AssertStatus(http.StatusServiceUnavailable)

	f.admin.RemoveFault("/v1/wallet").AssertStatus(http.StatusOK)
	client.Get("/v1/wallet").AssertStatus(http.StatusOK)
}

func TestAdminStateRoundTrip(t *testing.T) {
	f := setupTwin(t, nil)
	investor(t, f)

	snap := f.admin.GetState().AssertStatus(http.StatusOK).JSONMap()
	if len(snap) != 1 {
		t.Fatalf("expected one session in the snapshot, got %d", len(snap))
	}

	f.admin.LoadState(map[string]any{"sess_seeded": map[string]any{"wallet_balance": 777}}).AssertStatus(http.StatusOK)
	token, _, err := f.issuer.Issue("sess_seeded")
	if err != nil {
		t.Fatal(err)
	}
	seeded := f.tc.WithToken(token)
	if bal := seeded.Get("/v1/wallet").AssertStatus(http.StatusOK).JSONMap()["balance"]; bal != float64(777) {
		t.Errorf("expected seeded balance, got %v", bal)
	}
	f.admin.LoadState(snap).AssertStatus(http.StatusOK)

	tomatoes := map[string]any{"id": "1", "price_per_kg": 800, "quantity": 500}
	feed := make([]map[string]any, state.MaxNotifications+1)
	for i := range feed {
		feed[i] = map[string]any{"id": fmt.Sprintf("ntf_%06d", i+1), "message": "hi"}
	}
	badSeeds := map[string]map[string]any{
		"negative wallet": {"wallet_balance": -1},
		"zero quantity":   {"cart": []any{map[string]any{"product": tomatoes, "quantity": 0}}},
		"above stock":     {"cart": []any{map[string]any{"product": tomatoes, "quantity": 501}}},
		"duplicate line": {"cart": []any{
			map[string]any{"product": tomatoes, "quantity": 1},
			map[string]any{"product": tomatoes, "quantity": 2},
		}},
		"feed over cap": {"notifications": feed, "seq": 100},
		"seq behind ids": {"seq": 1, "investments": []any{
			map[string]any{"id": "inv_000007", "amount": 10000, "status": "active"},
		}},
	}
	for name, seed := range badSeeds {
		t.Run(name, func(t *testing.T) {
			f.admin.LoadState(map[string]any{"sess_bad": seed}).AssertStatus(http.StatusBadRequest)
		})
	}
	if _, err := f.store.Get("sess_bad"); err == nil {
		t.Error("rejected seed was partially loaded")
	}

	f.admin.Reset().AssertStatus(http.StatusOK)
	seeded.Get("/v1/wallet").AssertError(http.StatusUnauthorized, "session_not_found")
}

func TestAdminConfigDelays(t *testing.T) {
	f := setupTwin(t, nil)

	m := f.admin.GetConfig().AssertStatus(http.StatusOK).JSONMap()
	if m["checkout_delay"] != "2s" || m["latency"] != "0s" {
		t.Errorf("unexpected config %+v", m)
	}

	f.admin.UpdateConfig(map[string]any{"login_delay": "0s", "latency": "1ms"}).AssertStatus(http.StatusOK)
	if d := f.store.Delays(); d.Login != 0 || d.Checkout != 2*time.Second {
		t.Errorf("unexpected delays %+v", d)
	}

	f.admin.UpdateConfig(map[string]any{"checkout_delay": "0s", "port": 1}).AssertStatus(http.StatusBadRequest)
	if f.store.Delays().Checkout != 2*time.Second {
		t.Error("a rejected update must not change the delays")
	}
	f.admin.UpdateConfig(map[string]any{"login_delay": "-1s"}).AssertStatus(http.StatusBadRequest)
}

func TestAdminConfigWebhookTarget(t *testing.T) {
	f := setupTwin(t, nil)

	var mu sync.Mutex
	var received []string
	var signed bool
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, r.Header.Get("X-Agrotwin-Event"))
		signed = webhook.HMACSigner{}.Verify(body, "whsec_farm", r.Header.Get("X-Agrotwin-Signature"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(receiver.Close)

	m := f.admin.GetConfig().AssertStatus(http.StatusOK).JSONMap()
	if m["webhook_url"] != "" || m["webhook_pending"] != float64(0) {
		t.Errorf("unexpected webhook config %+v", m)
	}

	// Without a target nothing piles up.
	client := investor(t, f)
	client.Post("/v1/cart/items", map[string]any{"product_id": "2"}).AssertStatus(http.StatusOK)
	if n := len(f.hooks.QueuedEvents()); n != 0 {
		t.Fatalf("events queued without a webhook URL: %d", n)
	}

	f.admin.UpdateConfig(map[string]any{"webhook_url": "ftp://farm", "checkout_delay": "0s"}).AssertStatus(http.StatusBadRequest)
	if f.hooks.URL() != "" || f.store.Delays().Checkout != 2*time.Second {
		t.Error("a rejected webhook update must change nothing")
	}

	m = f.admin.UpdateConfig(map[string]any{"webhook_url": receiver.URL, "webhook_secret": "whsec_farm"}).
		AssertStatus(http.StatusOK).JSONMap()
	if m["webhook_url"] != receiver.URL {
		t.Errorf("webhook url not applied: %+v", m)
	}

	client.Post("/v1/cart/items", map[string]any{"product_id": "2"}).AssertStatus(http.StatusOK)
	if p := f.admin.GetConfig().JSONMap()["webhook_pending"]; p != float64(2) {
		t.Errorf("expected 2 pending webhooks, got %v", p)
	}
	f.admin.FlushWebhooks().AssertStatus(http.StatusOK)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 || received[0] != "cart.item_added" || received[1] != "notification.pushed" {
		t.Errorf("unexpected deliveries %v", received)
	}
	if !signed {
		t.Error("deliveries were not signed with the configured secret")
	}
}
