package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

type seedMenuItem struct {
	name        string
	description string
	price       string
	category    string
}

var defaultMenu = []seedMenuItem{
	{"Nasi Goreng", "Fried rice with egg", "15000", "Main"},
	{"Mie Ayam", "Chicken noodles", "13000", "Main"},
	{"Soto Ayam", "Chicken soup with rice", "14000", "Main"},
	{"Es Teh", "Iced sweet tea", "4000", "Drinks"},
	{"Kopi Susu", "Iced milk coffee", "8500", "Drinks"},
}

func main() {
	_ = godotenv.Load()

	// CLI flags
	email := flag.String("email", "", "Super admin email address")
	password := flag.String("password", "", "Super admin password")
	name := flag.String("name", "", "Super admin full name")
	canteenName := flag.String("canteen", "", "Active canteen name")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}
	if *canteenName == "" {
		*canteenName = os.Getenv("SEED_CANTEEN")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "superadmin@canteen.local"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Super Admin"
	}
	if *canteenName == "" {
		*canteenName = "Campus Canteen"
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "canteen"
	}

	ctx := context.Background()
	client, db, err := database.Connect(ctx, mongoURI, dbName)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer client.Disconnect(ctx)
	log.Println("Connected to database")

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	q := database.New(db)

	canteen, err := seedCanteen(ctx, q, *canteenName)
	if err != nil {
		log.Fatalf("Failed to seed canteen: %v", err)
	}

	userID, err := seedUser(ctx, q, strings.ToLower(strings.TrimSpace(*email)), *password, *name, enum.RoleSuperAdmin)
	if err != nil {
		log.Fatalf("Failed to seed super admin: %v", err)
	}

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@canteen.local"
	}
	adminID, err := seedUser(ctx, q, strings.ToLower(adminEmail), *password, "Canteen Admin", enum.RoleCanteenAdmin)
	if err != nil {
		log.Fatalf("Failed to seed canteen admin: %v", err)
	}

	if err := seedMenu(ctx, q, canteen.ID); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Canteen ID: %s", canteen.ID)
	log.Printf("Super admin ID: %s", userID)
	log.Printf("Canteen admin ID: %s", adminID)
}

// seedCanteen creates the active canteen profile if none is active.
func seedCanteen(ctx context.Context, q *database.Queries, name string) (database.CanteenProfile, error) {
	existing, err := q.GetActiveCanteen(ctx)
	if err == nil {
		log.Printf("Active canteen '%s' already exists (ID: %s), skipping", existing.Name, existing.ID)
		return existing, nil
	}
	if !errors.Is(err, database.ErrNoDocuments) {
		return database.CanteenProfile{}, fmt.Errorf("check canteen: %w", err)
	}

	created, err := q.CreateCanteenProfile(ctx, database.CanteenProfile{
		Name:         name,
		ContactPhone: "081234567890",
		LocationText: "Ground floor, main building",
		OpenHours:    "07:00-16:00",
		IsActive:     true,
	})
	if err != nil {
		return database.CanteenProfile{}, err
	}
	log.Printf("Created canteen '%s' (ID: %s)", created.Name, created.ID)
	return created, nil
}

// seedUser creates the user if the email is not taken.
func seedUser(ctx context.Context, q *database.Queries, email, password, fullName string, role enum.Role) (string, error) {
	existing, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existing.ID)
		return existing.ID.String(), nil
	}
	if !errors.Is(err, database.ErrNoDocuments) {
		return "", fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	created, err := q.CreateUser(ctx, database.User{
		Name:         fullName,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return "", err
	}
	log.Printf("Created %s user '%s' (ID: %s)", role, email, created.ID)
	return created.ID.String(), nil
}

// seedMenu upserts the default menu, keyed by canteen and item name.
func seedMenu(ctx context.Context, q *database.Queries, canteenID uuid.UUID) error {
	for _, it := range defaultMenu {
		price, err := decimal.NewFromString(it.price)
		if err != nil {
			return fmt.Errorf("parse price for %s: %w", it.name, err)
		}
		item, err := q.UpsertMenuItem(ctx, database.MenuItem{
			CanteenProfileID: canteenID,
			Name:             it.name,
			Description:      it.description,
			Price:            database.FromDecimal(price),
			Category:         it.category,
			IsAvailable:      true,
		})
		if err != nil {
			return err
		}
		log.Printf("Menu item '%s' ready (ID: %s)", item.Name, item.ID)
	}
	return nil
}
