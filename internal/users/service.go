package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

var (
	phonePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// ValidPhone reports whether phone is a ten digit Indian mobile number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Service manages profiles, addresses and vendor and driver state.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	List(ctx context.Context, filter Filter, params pagination.Params) (pagination.Page[models.User], error)
	All(ctx context.Context, filter Filter) ([]models.User, error)
	Views(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]models.PartyView

	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) (models.User, error)

	Addresses(ctx context.Context, actor uuid.UUID) ([]models.Address, error)
	AddAddress(ctx context.Context, actor uuid.UUID, input AddressInput) (models.Address, error)
	UpdateAddress(ctx context.Context, actor, addressID uuid.UUID, input AddressInput) (models.Address, error)
	DeleteAddress(ctx context.Context, actor, addressID uuid.UUID) error

	Vendor(ctx context.Context, id uuid.UUID, businessType enums.ServiceType) (models.User, error)
	SetAvailability(ctx context.Context, vendorID uuid.UUID, open bool) (models.User, error)
	SetVendorRating(ctx context.Context, vendorID uuid.UUID, average float64, count int) error

	SetDriverLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) (models.User, error)
	SetDriverOnline(ctx context.Context, driverID uuid.UUID, online bool) (models.User, error)
}

// ProfileInput holds the profile fields a user may change. Nil leaves a field
// untouched.
type ProfileInput struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	ProfilePicture *string
}

type AddressInput struct {
	Line1     string
	Line2     string
	City      string
	State     string
	Pincode   string
	Type      enums.AddressType
	IsDefault bool
	Location  *models.Location
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) mapErr(err error, action string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
	case errors.Is(err, ErrDuplicatePhone):
		return pkgerrors.New(pkgerrors.CodeConflict, "Phone number already registered")
	case errors.Is(err, ErrDuplicateEmail):
		return pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")
	case pkgerrors.As(err) != nil:
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.User{}, s.mapErr(err, "load user")
	}
	return u, nil
}

func (s *service) List(ctx context.Context, filter Filter, params pagination.Params) (pagination.Page[models.User], error) {
	rows, err := s.All(ctx, filter)
	if err != nil {
		return pagination.Page[models.User]{}, err
	}
	return pagination.Slice(rows, params), nil
}

func (s *service) All(ctx context.Context, filter Filter) ([]models.User, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.mapErr(err, "list users")
	}
	return rows, nil
}

// Views resolves public projections, skipping ids that do not exist.
func (s *service) Views(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]models.PartyView {
	out := make(map[uuid.UUID]models.PartyView, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, done := out[id]; done {
			continue
		}
		if u, err := s.repo.Get(ctx, id); err == nil {
			out[id] = u.View()
		}
	}
	return out
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (models.User, error) {
	if input.Phone != nil && !ValidPhone(strings.TrimSpace(*input.Phone)) {
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid phone number")
	}
	updated, err := s.repo.Update(ctx, id, func(u *models.User) error {
		if input.FirstName != nil {
			name := strings.TrimSpace(*input.FirstName)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "firstName cannot be empty")
			}
			u.FirstName = name
		}
		if input.LastName != nil {
			u.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Phone != nil {
			u.Phone = strings.TrimSpace(*input.Phone)
		}
		if input.ProfilePicture != nil {
			pic := strings.TrimSpace(*input.ProfilePicture)
			u.ProfilePicture = &pic
		}
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return models.User{}, s.mapErr(err, "update profile")
	}
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := s.SetStatus(ctx, id, enums.UserStatusInactive)
	return err
}

func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) (models.User, error) {
	if !status.IsValid() {
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid status")
	}
	updated, err := s.repo.Update(ctx, id, func(u *models.User) error {
		u.Status = status
		u.UpdatedAt = s.now().UTC()
		if u.Driver != nil && status != enums.UserStatusActive {
			u.Driver.IsOnline = false
		}
		return nil
	})
	if err != nil {
		return models.User{}, s.mapErr(err, "update user status")
	}
	return updated, nil
}

func requireCustomer(u models.User) error {
	if u.Role != enums.RoleCustomer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Only customers can manage addresses")
	}
	return nil
}

func (in AddressInput) validate() error {
	if strings.TrimSpace(in.Line1) == "" || strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.State) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "line1, city and state are required")
	}
	if !pincodePattern.MatchString(strings.TrimSpace(in.Pincode)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid pincode")
	}
	if !in.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid address type")
	}
	return nil
}

func (in AddressInput) apply(a *models.Address) {
	a.Line1 = strings.TrimSpace(in.Line1)
	a.Line2 = strings.TrimSpace(in.Line2)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.Pincode = strings.TrimSpace(in.Pincode)
	a.Type = in.Type
	a.Location = in.Location
}

// makeDefault leaves exactly one default address, the one at idx.
func makeDefault(addresses []models.Address, idx int) {
	for i := range addresses {
		addresses[i].IsDefault = i == idx
	}
}

func (s *service) Addresses(ctx context.Context, actor uuid.UUID) ([]models.Address, error) {
	u, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := requireCustomer(u); err != nil {
		return nil, err
	}
	if u.Addresses == nil {
		return []models.Address{}, nil
	}
	return u.Addresses, nil
}

func (s *service) AddAddress(ctx context.Context, actor uuid.UUID, input AddressInput) (models.Address, error) {
	if err := input.validate(); err != nil {
		return models.Address{}, err
	}
	var added models.Address
	_, err := s.repo.Update(ctx, actor, func(u *models.User) error {
		if err := requireCustomer(*u); err != nil {
			return err
		}
		now := s.now().UTC()
		added = models.Address{ID: uuid.New(), CreatedAt: now}
		input.apply(&added)
		u.Addresses = append(u.Addresses, added)
		if input.IsDefault || len(u.Addresses) == 1 {
			makeDefault(u.Addresses, len(u.Addresses)-1)
		}
		added = u.Addresses[len(u.Addresses)-1]
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Address{}, s.mapErr(err, "add address")
	}
	return added, nil
}

func (s *service) UpdateAddress(ctx context.Context, actor, addressID uuid.UUID, input AddressInput) (models.Address, error) {
	if err := input.validate(); err != nil {
		return models.Address{}, err
	}
	var updated models.Address
	_, err := s.repo.Update(ctx, actor, func(u *models.User) error {
		if err := requireCustomer(*u); err != nil {
			return err
		}
		idx := indexOfAddress(u.Addresses, addressID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Address not found")
		}
		input.apply(&u.Addresses[idx])
		if input.IsDefault {
			makeDefault(u.Addresses, idx)
		}
		updated = u.Addresses[idx]
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return models.Address{}, s.mapErr(err, "update address")
	}
	return updated, nil
}

func (s *service) DeleteAddress(ctx context.Context, actor, addressID uuid.UUID) error {
	_, err := s.repo.Update(ctx, actor, func(u *models.User) error {
		if err := requireCustomer(*u); err != nil {
			return err
		}
		idx := indexOfAddress(u.Addresses, addressID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Address not found")
		}
		wasDefault := u.Addresses[idx].IsDefault
		u.Addresses = append(u.Addresses[:idx], u.Addresses[idx+1:]...)
		if wasDefault && len(u.Addresses) > 0 {
			makeDefault(u.Addresses, 0)
		}
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return s.mapErr(err, "delete address")
	}
	return nil
}

func indexOfAddress(addresses []models.Address, id uuid.UUID) int {
	for i, a := range addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Vendor loads an active vendor of the given business type.
func (s *service) Vendor(ctx context.Context, id uuid.UUID, businessType enums.ServiceType) (models.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.User{}, s.mapErr(err, "load vendor")
	}
	if err != nil || u.Role != enums.RoleVendor || u.Vendor == nil || u.Status != enums.UserStatusActive ||
		(businessType != "" && u.Vendor.BusinessType != businessType) {
		return models.User{}, pkgerrors.New(pkgerrors.CodeNotFound, "Vendor not found")
	}
	return u, nil
}

func (s *service) SetAvailability(ctx context.Context, vendorID uuid.UUID, open bool) (models.User, error) {
	updated, err := s.repo.Update(ctx, vendorID, func(u *models.User) error {
		if u.Vendor == nil {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Vendor profile required")
		}
		u.Vendor.IsOpen = open
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return models.User{}, s.mapErr(err, "set availability")
	}
	return updated, nil
}

func (s *service) SetVendorRating(ctx context.Context, vendorID uuid.UUID, average float64, count int) error {
	_, err := s.repo.Update(ctx, vendorID, func(u *models.User) error {
		if u.Vendor == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Vendor not found")
		}
		u.Vendor.Rating = average
		u.Vendor.TotalRatings = count
		return nil
	})
	if err != nil {
		return s.mapErr(err, "update vendor rating")
	}
	return nil
}

func (s *service) SetDriverLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) (models.User, error) {
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid coordinates")
	}
	updated, err := s.repo.Update(ctx, driverID, func(u *models.User) error {
		if u.Driver == nil {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Driver profile required")
		}
		now := s.now().UTC()
		l := loc
		u.Driver.CurrentLocation = &l
		u.Driver.LocationAt = &now
		return nil
	})
	if err != nil {
		return models.User{}, s.mapErr(err, "update driver location")
	}
	return updated, nil
}

func (s *service) SetDriverOnline(ctx context.Context, driverID uuid.UUID, online bool) (models.User, error) {
	updated, err := s.repo.Update(ctx, driverID, func(u *models.User) error {
		if u.Driver == nil {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Driver profile required")
		}
		u.Driver.IsOnline = online
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return models.User{}, s.mapErr(err, "update driver availability")
	}
	return updated, nil
}
