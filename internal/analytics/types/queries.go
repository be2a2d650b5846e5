package types

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// RevenuePeriod selects the window of a revenue report.
type RevenuePeriod string

const (
	PeriodDay   RevenuePeriod = "day"
	PeriodWeek  RevenuePeriod = "week"
	PeriodMonth RevenuePeriod = "month"
	PeriodYear  RevenuePeriod = "year"
)

// ParseRevenuePeriod defaults an empty value to month.
func ParseRevenuePeriod(value string) (RevenuePeriod, error) {
	switch p := RevenuePeriod(value); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", fmt.Errorf("invalid period %q", value)
}

// TimeSeriesPoint describes a single date/value pair.
type TimeSeriesPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// VendorDashboard summarizes a vendor's orders.
type VendorDashboard struct {
	TodayOrders   int               `json:"todayOrders"`
	TodayRevenue  decimal.Decimal   `json:"todayRevenue"`
	PendingOrders int               `json:"pendingOrders"`
	ActiveOrders  int               `json:"activeOrders"`
	TotalOrders   int               `json:"totalOrders"`
	TotalRevenue  decimal.Decimal   `json:"totalRevenue"`
	Rating        float64           `json:"rating"`
	TotalReviews  int               `json:"totalReviews"`
	BusinessType  enums.ServiceType `json:"businessType"`
}

type UserCounts struct {
	Total       int `json:"total"`
	Customers   int `json:"customers"`
	Vendors     int `json:"vendors"`
	Drivers     int `json:"drivers"`
	ActiveToday int `json:"activeToday"`
}

type OrderCounts struct {
	Total      int                       `json:"total"`
	Pending    int                       `json:"pending"`
	InProgress int                       `json:"inProgress"`
	Completed  int                       `json:"completed"`
	Cancelled  int                       `json:"cancelled"`
	TodayTotal int                       `json:"todayTotal"`
	ByStatus   map[enums.OrderStatus]int `json:"byStatus"`
}

type RevenueTotals struct {
	Total     decimal.Decimal `json:"total"`
	Today     decimal.Decimal `json:"today"`
	ThisMonth decimal.Decimal `json:"thisMonth"`
}

type ServiceCounts struct {
	Transport int `json:"transport"`
	Food      int `json:"food"`
	Mart      int `json:"mart"`
}

// AdminDashboard is the platform-wide overview.
type AdminDashboard struct {
	Users    UserCounts    `json:"users"`
	Orders   OrderCounts   `json:"orders"`
	Revenue  RevenueTotals `json:"revenue"`
	Services ServiceCounts `json:"services"`
}

type ServiceRevenue struct {
	Transport decimal.Decimal `json:"transport"`
	Food      decimal.Decimal `json:"food"`
	Mart      decimal.Decimal `json:"mart"`
}

// RevenueReport covers DELIVERED orders within a period.
type RevenueReport struct {
	Period    RevenuePeriod     `json:"period"`
	Total     decimal.Decimal   `json:"total"`
	Orders    int               `json:"orders"`
	ByService ServiceRevenue    `json:"byService"`
	Average   decimal.Decimal   `json:"average"`
	Daily     []TimeSeriesPoint `json:"daily"`
}
