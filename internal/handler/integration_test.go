//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smart-canteen/api/internal/config"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
	"github.com/smart-canteen/api/internal/metrics"
	"github.com/smart-canteen/api/internal/router"
	"github.com/smart-canteen/api/internal/service"
	"github.com/smart-canteen/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the order lifecycle against a real MongoDB
// with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, uri, cleanup := setupMongoContainer(t, ctx)
	defer cleanup()

	client, db, err := database.Connect(ctx, uri, "canteen_test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(context.Background())
	if err := database.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	// Initialize dependencies
	cfg := &config.Config{
		Port:           "8081",
		JWTSecret:      "integration-test-secret",
		AccessTokenTTL: time.Hour,
	}
	queries := database.New(db)
	canteens := service.NewActiveCanteen(queries, nil, 0)
	hub := ws.NewHub()
	go hub.Run(ctx)
	m := metrics.New()
	orders := service.NewOrderService(queries, canteens, service.FanOut{ws.NewOrderFeed(hub)}, m)

	r := router.New(cfg, router.Deps{
		Queries:  queries,
		Orders:   orders,
		Canteens: canteens,
		Hub:      hub,
		Metrics:  m,
	})
	server := httptest.NewServer(r)
	defer server.Close()

	health := httpDoJSON(t, server, "GET", "/health", nil, "", http.StatusOK)
	if health["status"] != "ok" {
		t.Fatalf("health: got %v", health)
	}

	// --- 1. Canteen and menu (direct inserts, no menu management API) ---
	canteenID := createCanteen(t, ctx, queries)
	rice := createMenuItem(t, ctx, queries, canteenID, "Nasi Goreng", "15000.50", true)
	tea := createMenuItem(t, ctx, queries, canteenID, "Es Teh", "4000", true)
	soldOut := createMenuItem(t, ctx, queries, canteenID, "Sate", "20000", false)

	// --- 2. Super admin bootstrap, then canteen admin through the API ---
	createUser(t, ctx, queries, "root@test.com", "password123", enum.RoleSuperAdmin)
	rootToken := login(t, server, "root@test.com", "password123")
	httpDoJSON(t, server, "POST", "/users/canteen-admins", map[string]interface{}{
		"name": "Kitchen", "email": "kitchen@test.com", "password": "password123",
	}, rootToken, http.StatusCreated)
	adminToken := login(t, server, "kitchen@test.com", "password123")

	// --- 3. Student registers ---
	reg := httpDoJSON(t, server, "POST", "/auth/register", map[string]interface{}{
		"name": "Student", "email": "student@test.com", "password": "password123", "studentId": "S1",
	}, "", http.StatusCreated)
	studentToken := reg["token"].(string)

	// --- 4. Menu shows only available items when asked ---
	menu := httpDoJSON(t, server, "GET", "/menu?available=true", nil, studentToken, http.StatusOK)
	if got := len(menu["items"].([]interface{})); got != 2 {
		t.Fatalf("available menu items: got %d, want 2", got)
	}

	// --- 5. Unavailable item is rejected ---
	httpDoJSON(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"menuItemId": soldOut.String(), "qty": 1}},
	}, studentToken, http.StatusBadRequest)

	// --- 6. Place an order; qty as string and absent both coerce ---
	created := httpDoJSON(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"menuItemId": rice.String(), "qty": "2"},
			{"menuItemId": tea.String()},
		},
		"paymentMethod": "CASH",
	}, studentToken, http.StatusCreated)
	order := created["order"].(map[string]interface{})
	orderID := order["_id"].(string)
	if order["total"] != "35001.00" {
		t.Fatalf("total: got %v, want 35001.00", order["total"])
	}
	if order["status"] != "PLACED" {
		t.Fatalf("status: got %v, want PLACED", order["status"])
	}

	// --- 6b. A later menu price change leaves the stored order alone ---
	riceItem := database.MenuItem{
		CanteenProfileID: canteenID,
		Name:             "Nasi Goreng",
		Price:            database.FromDecimal(decimal.RequireFromString("99999")),
		Category:         "Test",
		IsAvailable:      true,
	}
	if _, err := queries.UpsertMenuItem(ctx, riceItem); err != nil {
		t.Fatalf("reprice menu item: %v", err)
	}
	placed := httpDoJSON(t, server, "GET", "/orders/my", nil, studentToken, http.StatusOK)
	stored := placed["orders"].([]interface{})[0].(map[string]interface{})
	if stored["total"] != "35001.00" {
		t.Fatalf("stored total after reprice: got %v, want 35001.00", stored["total"])
	}
	for _, it := range stored["items"].([]interface{}) {
		line := it.(map[string]interface{})
		if line["menuItemId"] == rice.String() && line["priceSnapshot"] != "15000.50" {
			t.Fatalf("stored priceSnapshot after reprice: got %v, want 15000.50", line["priceSnapshot"])
		}
	}

	// --- 7. Edit while PLACED ---
	edited := httpDoJSON(t, server, "PUT", "/orders/"+orderID, map[string]interface{}{
		"items": []map[string]interface{}{{"menuItemId": tea.String(), "qty": 3}},
	}, studentToken, http.StatusOK)
	if total := edited["order"].(map[string]interface{})["total"]; total != "12000.00" {
		t.Fatalf("edited total: got %v, want 12000.00", total)
	}

	// --- 8. Admin sees it with the owner joined ---
	list := httpDoJSON(t, server, "GET", "/orders?status=PLACED", nil, adminToken, http.StatusOK)
	listed := list["orders"].([]interface{})
	if len(listed) != 1 {
		t.Fatalf("placed orders: got %d, want 1", len(listed))
	}
	if user := listed[0].(map[string]interface{})["user"].(map[string]interface{}); user["email"] != "student@test.com" {
		t.Fatalf("joined user email: got %v", user["email"])
	}

	// --- 9. Skipping a step is rejected, then the admin walks the lifecycle ---
	httpDoJSON(t, server, "PATCH", "/orders/"+orderID+"/status",
		map[string]interface{}{"status": "READY"}, adminToken, http.StatusBadRequest)
	for _, next := range []string{"ACCEPTED", "PREPARING", "READY", "COLLECTED"} {
		resp := httpDoJSON(t, server, "PATCH", "/orders/"+orderID+"/status",
			map[string]interface{}{"status": next}, adminToken, http.StatusOK)
		if got := resp["order"].(map[string]interface{})["status"]; got != next {
			t.Fatalf("advance: got %v, want %s", got, next)
		}
		if rateable := resp["order"].(map[string]interface{})["rateable"]; rateable != (next == "COLLECTED") {
			t.Fatalf("rateable after %s: got %v", next, rateable)
		}
	}

	// --- 10. Collected orders can no longer be edited or cancelled ---
	httpDoJSON(t, server, "PATCH", "/orders/"+orderID+"/cancel", nil, studentToken, http.StatusBadRequest)
	httpDoJSON(t, server, "PUT", "/orders/"+orderID, map[string]interface{}{
		"items": []map[string]interface{}{{"menuItemId": tea.String()}},
	}, studentToken, http.StatusBadRequest)

	// --- 11. A second order is cancelled by its owner ---
	second := httpDoJSON(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"menuItemId": tea.String()}},
	}, studentToken, http.StatusCreated)
	secondID := second["order"].(map[string]interface{})["_id"].(string)
	cancelled := httpDoJSON(t, server, "PATCH", "/orders/"+secondID+"/cancel", nil, studentToken, http.StatusOK)
	if got := cancelled["order"].(map[string]interface{})["status"]; got != "CANCELLED" {
		t.Fatalf("cancel: got %v, want CANCELLED", got)
	}

	// --- 12. A write against an outdated version does not apply ---
	_, err = queries.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:      uuid.MustParse(secondID),
		From:    enum.OrderStatusPlaced,
		To:      enum.OrderStatusAccepted,
		Version: 0,
		At:      time.Now().UTC(),
	})
	if !errors.Is(err, database.ErrNoDocuments) {
		t.Fatalf("stale status write: got %v, want ErrNoDocuments", err)
	}

	// --- 13. Student history ---
	mine := httpDoJSON(t, server, "GET", "/orders/my", nil, studentToken, http.StatusOK)
	if got := len(mine["orders"].([]interface{})); got != 2 {
		t.Fatalf("my orders: got %d, want 2", got)
	}

	// --- 14. Deactivated canteen admin can no longer log in ---
	admins := httpDoJSON(t, server, "GET", "/users/canteen-admins", nil, rootToken, http.StatusOK)
	adminID := admins["users"].([]interface{})[0].(map[string]interface{})["_id"].(string)
	httpDoJSON(t, server, "PATCH", "/users/"+adminID+"/status",
		map[string]interface{}{"isActive": false}, rootToken, http.StatusOK)
	httpDoJSON(t, server, "POST", "/auth/login", map[string]interface{}{
		"email": "kitchen@test.com", "password": "password123",
	}, "", http.StatusUnauthorized)

	t.Logf("Integration test passed: container=%s, canteen=%s, order=%s",
		container.GetContainerID(), canteenID, orderID)
}

// --- Setup helpers ---

func setupMongoContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return container, uri, cleanup
}

func createCanteen(t *testing.T, ctx context.Context, q *database.Queries) uuid.UUID {
	t.Helper()
	c, err := q.CreateCanteenProfile(ctx, database.CanteenProfile{
		Name:     "Test Canteen",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create canteen: %v", err)
	}
	return c.ID
}

func createMenuItem(t *testing.T, ctx context.Context, q *database.Queries, canteenID uuid.UUID, name, price string, available bool) uuid.UUID {
	t.Helper()
	item, err := q.UpsertMenuItem(ctx, database.MenuItem{
		CanteenProfileID: canteenID,
		Name:             name,
		Price:            database.FromDecimal(decimal.RequireFromString(price)),
		Category:         "Test",
		IsAvailable:      available,
	})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	return item.ID
}

func createUser(t *testing.T, ctx context.Context, q *database.Queries, email, password string, role enum.Role) uuid.UUID {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := q.CreateUser(ctx, database.User{
		Name:         "Bootstrap",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := httpDoJSON(t, server, "POST", "/auth/login", map[string]interface{}{
		"email": email, "password": password,
	}, "", http.StatusOK)
	token, ok := resp["token"].(string)
	if !ok || token == "" {
		t.Fatalf("login %s: no token in response", email)
	}
	return token
}

// --- HTTP helpers ---

func httpDoJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, wantStatus int) map[string]interface{} {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body: %v", method, path, resp.StatusCode, wantStatus, result)
	}
	return result
}
