package enums

import "fmt"

// SalesOrderStatus describes the lifecycle of a warehouse sales order.
type SalesOrderStatus string

const (
	SalesOrderStatusOpen       SalesOrderStatus = "open"
	SalesOrderStatusConfirmed  SalesOrderStatus = "confirmed"
	SalesOrderStatusDispatched SalesOrderStatus = "dispatched"
	SalesOrderStatusCancelled  SalesOrderStatus = "cancelled"
)

var validSalesOrderStatuses = []SalesOrderStatus{
	SalesOrderStatusOpen,
	SalesOrderStatusConfirmed,
	SalesOrderStatusDispatched,
	SalesOrderStatusCancelled,
}

// IsValid reports whether the value matches the canonical sales order enum.
func (s SalesOrderStatus) IsValid() bool {
	for _, candidate := range validSalesOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSalesOrderStatus converts the raw string to SalesOrderStatus.
func ParseSalesOrderStatus(value string) (SalesOrderStatus, error) {
	for _, candidate := range validSalesOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sales order status %q", value)
}
