// Package seed loads the demo marketplace: one account per role, a
// restaurant and a store with listings, online drivers and the launch promos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/catalog"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/security"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "password123"

var startingBalance = decimal.NewFromInt(1000)

type Deps struct {
	Users   users.Repository
	Catalog catalog.Service
	Promos  promo.Service
	Wallet  wallet.Service
	Hasher  *security.Hasher
	Logger  *logger.Logger
	Now     func() time.Time
}

// Summary counts what a run created. Reruns against the same stores create
// nothing because accounts are keyed by email.
type Summary struct {
	Users      int
	MenuItems  int
	Products   int
	PromoCodes int
}

type account struct {
	email, phone, first, last string
	role                      enums.Role
	vendor                    *models.VendorProfile
	driver                    *models.DriverProfile
}

func loc(lat, lng float64) *models.Location {
	return &models.Location{Latitude: lat, Longitude: lng}
}

func accounts() []account {
	return []account{
		{email: "admin@jebdekho.com", phone: "9876543200", first: "Platform", last: "Admin", role: enums.RoleAdmin},
		{email: "john@example.com", phone: "9876543210", first: "John", last: "Doe", role: enums.RoleCustomer},
		{email: "pizzapalace@example.com", phone: "9876543220", first: "Pizza", last: "Palace", role: enums.RoleVendor,
			vendor: &models.VendorProfile{
				BusinessName: "Pizza Palace",
				BusinessType: enums.ServiceTypeFood,
				Description:  "Wood fired pizzas and sides",
				Cuisines:     []string{"Italian", "Fast Food"},
				Address:      "123 Food Street, Mumbai 400001",
				Location:     loc(19.0760, 72.8777),
				IsOpen:       true,
				DeliveryTime: 30,
				MinimumOrder: decimal.NewFromInt(150),
			}},
		{email: "freshmart@example.com", phone: "9876543221", first: "Fresh", last: "Mart", role: enums.RoleVendor,
			vendor: &models.VendorProfile{
				BusinessName: "Fresh Mart",
				BusinessType: enums.ServiceTypeMart,
				Description:  "Groceries and daily essentials",
				Address:      "456 Market Road, Mumbai 400002",
				Location:     loc(19.0820, 72.8810),
				IsOpen:       true,
				DeliveryTime: 20,
				MinimumOrder: decimal.NewFromInt(200),
			}},
		{email: "ravi@example.com", phone: "9876543230", first: "Ravi", last: "Kumar", role: enums.RoleDeliveryPartner,
			driver: &models.DriverProfile{VehicleType: enums.VehicleTypeBike, VehicleNumber: "MH01AB1234", LicenseNumber: "DL123456789", IsOnline: true, CurrentLocation: loc(19.0760, 72.8777)}},
		{email: "suresh@example.com", phone: "9876543231", first: "Suresh", last: "Patil", role: enums.RoleDeliveryPartner,
			driver: &models.DriverProfile{VehicleType: enums.VehicleTypeAuto, VehicleNumber: "MH02CD5678", LicenseNumber: "DL223456789", IsOnline: true, CurrentLocation: loc(19.0700, 72.8700)}},
		{email: "anil@example.com", phone: "9876543232", first: "Anil", last: "Shah", role: enums.RoleDeliveryPartner,
			driver: &models.DriverProfile{VehicleType: enums.VehicleTypeCar, VehicleNumber: "MH03EF9012", LicenseNumber: "DL323456789", IsOnline: true, CurrentLocation: loc(19.0850, 72.8900)}},
	}
}

func menu() []catalog.MenuItemInput {
	return []catalog.MenuItemInput{
		{Name: "Margherita Pizza", Description: "Classic pizza with mozzarella and basil", Category: "Pizza", Price: decimal.NewFromInt(299), IsVeg: true, IsAvailable: true, PrepTime: 20},
		{Name: "Chicken Tikka Pizza", Description: "Spicy chicken tikka with onions and peppers", Category: "Pizza", Price: decimal.NewFromInt(399), IsAvailable: true, PrepTime: 25},
		{Name: "Garlic Bread", Description: "Toasted with herb butter", Category: "Sides", Price: decimal.NewFromInt(129), IsVeg: true, IsAvailable: true, PrepTime: 10},
		{Name: "Cold Coffee", Category: "Beverages", Price: decimal.NewFromInt(99), IsVeg: true, IsAvailable: true, PrepTime: 5},
	}
}

func products() []catalog.ProductInput {
	return []catalog.ProductInput{
		{Name: "Fresh Milk", Description: "Farm fresh pasteurized milk", Category: "Dairy", Brand: "Amul", Unit: "1L", Price: decimal.NewFromInt(60), MRP: decimal.NewFromInt(65), Stock: 100, IsAvailable: true},
		{Name: "Organic Tomatoes", Description: "Fresh organic tomatoes", Category: "Vegetables", Unit: "1kg", Price: decimal.NewFromInt(40), MRP: decimal.NewFromInt(50), Stock: 50, IsAvailable: true},
		{Name: "Whole Wheat Bread", Category: "Bakery", Brand: "Harvest Gold", Unit: "400g", Price: decimal.NewFromInt(45), Stock: 40, IsAvailable: true},
		{Name: "Basmati Rice", Category: "Staples", Brand: "India Gate", Unit: "5kg", Price: decimal.NewFromInt(650), MRP: decimal.NewFromInt(720), Stock: 25, IsAvailable: true},
	}
}

// Run seeds the demo data. It stops at the first failure other than an
// already existing account.
func Run(ctx context.Context, deps Deps) (Summary, error) {
	if deps.Users == nil || deps.Catalog == nil || deps.Promos == nil || deps.Wallet == nil || deps.Hasher == nil {
		return Summary{}, errors.New("seed: missing dependency")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	now := deps.Now().UTC()

	hash, err := deps.Hasher.Hash(DemoPassword)
	if err != nil {
		return Summary{}, fmt.Errorf("seed: hash password: %w", err)
	}

	var summary Summary
	created := make(map[string]models.User)
	for _, a := range accounts() {
		u := models.User{
			ID:           uuid.New(),
			Email:        a.email,
			Phone:        a.phone,
			PasswordHash: hash,
			FirstName:    a.first,
			LastName:     a.last,
			Role:         a.role,
			Status:       enums.UserStatusActive,
			Vendor:       a.vendor,
			Driver:       a.driver,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if u.Driver != nil && u.Driver.CurrentLocation != nil {
			u.Driver.LocationAt = &now
		}
		if err := deps.Users.Create(ctx, u); err != nil {
			if errors.Is(err, users.ErrDuplicateEmail) || errors.Is(err, users.ErrDuplicatePhone) {
				continue
			}
			return summary, fmt.Errorf("seed: create %s: %w", a.email, err)
		}
		created[a.email] = u
		summary.Users++
	}

	if restaurant, ok := created["pizzapalace@example.com"]; ok {
		for _, in := range menu() {
			if _, err := deps.Catalog.AddMenuItem(ctx, restaurant.ID, in); err != nil {
				return summary, fmt.Errorf("seed: menu item %s: %w", in.Name, err)
			}
			summary.MenuItems++
		}
	}
	if store, ok := created["freshmart@example.com"]; ok {
		for _, in := range products() {
			if _, err := deps.Catalog.AddProduct(ctx, store.ID, in); err != nil {
				return summary, fmt.Errorf("seed: product %s: %w", in.Name, err)
			}
			summary.Products++
		}
	}
	if customer, ok := created["john@example.com"]; ok {
		if _, err := deps.Wallet.Credit(ctx, wallet.CreditInput{
			UserID:    customer.ID,
			Amount:    startingBalance,
			Method:    "PROMOTIONAL",
			Reference: "SEED_" + customer.ID.String(),
		}); err != nil {
			return summary, fmt.Errorf("seed: wallet: %w", err)
		}
	}

	summary.PromoCodes, err = promo.SeedDefaults(ctx, deps.Promos, now)
	if err != nil {
		return summary, fmt.Errorf("seed: promos: %w", err)
	}

	deps.Logger.Info(deps.Logger.WithFields(ctx, map[string]any{
		"users":       summary.Users,
		"menu_items":  summary.MenuItems,
		"products":    summary.Products,
		"promo_codes": summary.PromoCodes,
	}), "seed.completed")
	return summary, nil
}
