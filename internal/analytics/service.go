package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/analytics/types"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// Service provides dashboard and revenue reports computed from live orders.
type Service interface {
	VendorDashboard(ctx context.Context, vendorID uuid.UUID) (*types.VendorDashboard, error)
	AdminDashboard(ctx context.Context) (*types.AdminDashboard, error)
	Revenue(ctx context.Context, period types.RevenuePeriod) (*types.RevenueReport, error)
}

type orderSource interface {
	All(ctx context.Context, filter orders.Filter) ([]models.Order, error)
}

type userSource interface {
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	All(ctx context.Context, filter users.Filter) ([]models.User, error)
}

type service struct {
	orders orderSource
	users  userSource
	loc    *time.Location
	now    func() time.Time
}

type Option func(*service)

// WithLocation sets the zone that "today" and "this month" are measured in.
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds an analytics service over the order and user stores.
func NewService(orderSrc orderSource, userSrc userSource, opts ...Option) (Service, error) {
	if orderSrc == nil {
		return nil, fmt.Errorf("order source required")
	}
	if userSrc == nil {
		return nil, fmt.Errorf("user source required")
	}
	s := &service{orders: orderSrc, users: userSrc, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) VendorDashboard(ctx context.Context, vendorID uuid.UUID) (*types.VendorDashboard, error) {
	vendor, err := s.users.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Vendor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Vendor not found")
	}
	rows, err := s.orders.All(ctx, orders.Filter{VendorID: &vendorID})
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	out := &types.VendorDashboard{
		TotalOrders:  len(rows),
		TodayRevenue: decimal.Zero,
		TotalRevenue: decimal.Zero,
		Rating:       vendor.Vendor.Rating,
		TotalReviews: vendor.Vendor.TotalRatings,
		BusinessType: vendor.Vendor.BusinessType,
	}
	for _, o := range rows {
		out.TotalRevenue = out.TotalRevenue.Add(o.TotalAmount)
		if sameDay(o.CreatedAt.In(s.loc), now) {
			out.TodayOrders++
			out.TodayRevenue = out.TodayRevenue.Add(o.TotalAmount)
		}
		switch {
		case o.Status == enums.OrderStatusPending:
			out.PendingOrders++
		case o.Status.IsActive():
			out.ActiveOrders++
		}
	}
	return out, nil
}

func (s *service) AdminDashboard(ctx context.Context) (*types.AdminDashboard, error) {
	accounts, err := s.users.All(ctx, users.Filter{})
	if err != nil {
		return nil, err
	}
	rows, err := s.orders.All(ctx, orders.Filter{})
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	out := &types.AdminDashboard{
		Orders: types.OrderCounts{
			Total:    len(rows),
			ByStatus: make(map[enums.OrderStatus]int),
		},
		Revenue: types.RevenueTotals{Total: decimal.Zero, Today: decimal.Zero, ThisMonth: decimal.Zero},
	}

	out.Users.Total = len(accounts)
	for _, u := range accounts {
		switch u.Role {
		case enums.RoleCustomer:
			out.Users.Customers++
		case enums.RoleVendor:
			out.Users.Vendors++
		case enums.RoleDeliveryPartner:
			out.Users.Drivers++
		}
		if sameDay(u.UpdatedAt.In(s.loc), now) {
			out.Users.ActiveToday++
		}
	}

	for _, o := range rows {
		out.Orders.ByStatus[o.Status]++
		switch o.Status {
		case enums.OrderStatusPending:
			out.Orders.Pending++
		case enums.OrderStatusDelivered:
			out.Orders.Completed++
		case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
			out.Orders.Cancelled++
		default:
			out.Orders.InProgress++
		}
		created := o.CreatedAt.In(s.loc)
		if sameDay(created, now) {
			out.Orders.TodayTotal++
		}

		switch o.ServiceType {
		case enums.ServiceTypeTransport:
			out.Services.Transport++
		case enums.ServiceTypeFood:
			out.Services.Food++
		case enums.ServiceTypeMart:
			out.Services.Mart++
		}

		if o.Status != enums.OrderStatusDelivered {
			continue
		}
		at := RevenueTimestamp(o.DeliveredAt, o.CreatedAt).In(s.loc)
		out.Revenue.Total = out.Revenue.Total.Add(o.FinalAmount)
		if sameDay(at, now) {
			out.Revenue.Today = out.Revenue.Today.Add(o.FinalAmount)
		}
		if sameMonth(at, now) {
			out.Revenue.ThisMonth = out.Revenue.ThisMonth.Add(o.FinalAmount)
		}
	}
	return out, nil
}

func (s *service) Revenue(ctx context.Context, period types.RevenuePeriod) (*types.RevenueReport, error) {
	now := s.now().In(s.loc)
	inPeriod, err := s.window(period, now)
	if err != nil {
		return nil, err
	}
	rows, err := s.orders.All(ctx, orders.Filter{Statuses: []enums.OrderStatus{enums.OrderStatusDelivered}})
	if err != nil {
		return nil, err
	}

	out := &types.RevenueReport{
		Period:    period,
		Total:     decimal.Zero,
		Average:   decimal.Zero,
		ByService: types.ServiceRevenue{Transport: decimal.Zero, Food: decimal.Zero, Mart: decimal.Zero},
	}
	daily := make(map[string]decimal.Decimal)
	for _, o := range rows {
		at := RevenueTimestamp(o.DeliveredAt, o.CreatedAt).In(s.loc)
		if !inPeriod(at) {
			continue
		}
		out.Orders++
		out.Total = out.Total.Add(o.FinalAmount)
		switch o.ServiceType {
		case enums.ServiceTypeTransport:
			out.ByService.Transport = out.ByService.Transport.Add(o.FinalAmount)
		case enums.ServiceTypeFood:
			out.ByService.Food = out.ByService.Food.Add(o.FinalAmount)
		case enums.ServiceTypeMart:
			out.ByService.Mart = out.ByService.Mart.Add(o.FinalAmount)
		}
		day := at.Format(time.DateOnly)
		daily[day] = daily[day].Add(o.FinalAmount)
	}
	if out.Orders > 0 {
		out.Average = out.Total.Div(decimal.NewFromInt(int64(out.Orders))).Round(2)
	}

	out.Daily = make([]types.TimeSeriesPoint, 0, len(daily))
	for day, value := range daily {
		out.Daily = append(out.Daily, types.TimeSeriesPoint{Date: day, Value: value})
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })
	return out, nil
}

// window returns a predicate for the period ending at now. Day, month and
// year are calendar periods; week is today plus the six days before it.
func (s *service) window(period types.RevenuePeriod, now time.Time) (func(time.Time) bool, error) {
	switch period {
	case types.PeriodDay:
		return func(t time.Time) bool { return sameDay(t, now) }, nil
	case types.PeriodWeek:
		from := startOfDay(now).AddDate(0, 0, -6)
		return func(t time.Time) bool { return !t.Before(from) && !t.After(now) }, nil
	case types.PeriodMonth:
		return func(t time.Time) bool { return sameMonth(t, now) }, nil
	case types.PeriodYear:
		return func(t time.Time) bool { return t.Year() == now.Year() }, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid period").
		WithDetails(map[string]string{"period": string(period)})
}
