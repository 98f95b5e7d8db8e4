package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
	"github.com/smart-canteen/api/internal/handler"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User // keyed by user ID
	// raceEmail simulates a concurrent insert that wins the unique index.
	raceEmail string
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return database.User{}, database.ErrNoDocuments
}

func (m *mockUserStore) CreateUser(_ context.Context, u database.User) (database.User, error) {
	if u.Email == m.raceEmail {
		return database.User{}, mongo.WriteException{
			WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) ListUsersByRole(_ context.Context, role enum.Role) ([]database.User, error) {
	result := []database.User{}
	for _, u := range m.users {
		if u.Role == role {
			u.PasswordHash = ""
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserStore) SetUserActive(_ context.Context, arg database.SetUserActiveParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok || u.Role != arg.Role {
		return database.User{}, database.ErrNoDocuments
	}
	u.IsActive = arg.IsActive
	m.users[u.ID] = u
	return u, nil
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func seedUser(store *mockUserStore, role enum.Role, email string) database.User {
	u := database.User{
		ID:           uuid.New(),
		Name:         "Seeded",
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		IsActive:     true,
	}
	store.users[u.ID] = u
	return u
}

// --- List tests ---

func TestListCanteenAdmins_OnlyAdmins(t *testing.T) {
	store := newMockUserStore()
	seedUser(store, enum.RoleCanteenAdmin, "admin@test.com")
	seedUser(store, enum.RoleUser, "student@test.com")
	r := setupUserRouter(store)

	rr := doRequest(t, r, "GET", "/users/canteen-admins", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp struct {
		Users []map[string]interface{} `json:"users"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Users) != 1 {
		t.Fatalf("users: got %d, want 1", len(resp.Users))
	}
	if resp.Users[0]["email"] != "admin@test.com" {
		t.Errorf("email: got %v", resp.Users[0]["email"])
	}
	if _, leaked := resp.Users[0]["passwordHash"]; leaked {
		t.Error("password hash leaked")
	}
}

// --- Create tests ---

func TestCreateCanteenAdmin_Valid(t *testing.T) {
	store := newMockUserStore()
	r := setupUserRouter(store)

	rr := doRequest(t, r, "POST", "/users/canteen-admins", map[string]string{
		"name":     "Kitchen Lead",
		"email":    "Lead@Canteen.com",
		"password": "pw-123456",
		"phone":    "0811",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["role"] != "CANTEEN_ADMIN" {
		t.Errorf("role: got %v", user["role"])
	}
	if user["email"] != "lead@canteen.com" {
		t.Errorf("email: got %v", user["email"])
	}
	if user["isActive"] != true {
		t.Errorf("isActive: got %v", user["isActive"])
	}

	for _, u := range store.users {
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw-123456")); err != nil {
			t.Error("password not hashed with bcrypt")
		}
	}
}

func TestCreateCanteenAdmin_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	seedUser(store, enum.RoleUser, "taken@test.com")
	r := setupUserRouter(store)

	rr := doRequest(t, r, "POST", "/users/canteen-admins", map[string]string{
		"name": "X", "email": "taken@test.com", "password": "pw",
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateCanteenAdmin_DuplicateKeyRace(t *testing.T) {
	store := newMockUserStore()
	store.raceEmail = "race@test.com"
	r := setupUserRouter(store)

	rr := doRequest(t, r, "POST", "/users/canteen-admins", map[string]string{
		"name": "X", "email": "race@test.com", "password": "pw",
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateCanteenAdmin_MissingFields(t *testing.T) {
	r := setupUserRouter(newMockUserStore())

	rr := doRequest(t, r, "POST", "/users/canteen-admins", map[string]string{"name": "X"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Status tests ---

func TestSetStatus_Deactivates(t *testing.T) {
	store := newMockUserStore()
	admin := seedUser(store, enum.RoleCanteenAdmin, "admin@test.com")
	r := setupUserRouter(store)

	rr := doRequest(t, r, "PATCH", "/users/"+admin.ID.String()+"/status", map[string]bool{"isActive": false})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if store.users[admin.ID].IsActive {
		t.Error("admin still active")
	}
}

func TestSetStatus_NonBoolean(t *testing.T) {
	store := newMockUserStore()
	admin := seedUser(store, enum.RoleCanteenAdmin, "admin@test.com")
	r := setupUserRouter(store)

	for _, body := range []interface{}{
		map[string]string{"isActive": "false"},
		map[string]interface{}{},
	} {
		rr := doRequest(t, r, "PATCH", "/users/"+admin.ID.String()+"/status", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %v: got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestSetStatus_OnlyCanteenAdmins(t *testing.T) {
	store := newMockUserStore()
	student := seedUser(store, enum.RoleUser, "student@test.com")
	r := setupUserRouter(store)

	rr := doRequest(t, r, "PATCH", "/users/"+student.ID.String()+"/status", map[string]bool{"isActive": false})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if !store.users[student.ID].IsActive {
		t.Error("student was deactivated")
	}
}

func TestSetStatus_UnknownID(t *testing.T) {
	r := setupUserRouter(newMockUserStore())

	rr := doRequest(t, r, "PATCH", "/users/"+uuid.New().String()+"/status", map[string]bool{"isActive": true})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
