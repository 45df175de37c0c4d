package dto

import (
	"fmt"
	"time"

	"motomaster/internal/domain"
)

// CustomerIdentity carries the raw credential; never log it.
type CustomerIdentity struct {
	DisplayName string
	Phone       string
	Credential  string
}

// String omits the credential so the struct is safe in formatted output.
func (c CustomerIdentity) String() string {
	return fmt.Sprintf("{DisplayName:%s Phone:%s Credential:<redacted>}", c.DisplayName, c.Phone)
}

type PlaceOrderRequest struct {
	Customer    CustomerIdentity
	ServiceCode domain.ServiceCode
}

type PlaceOrderResult struct {
	OrderID         int64
	CustomerID      int64
	CustomerCreated bool
	ServiceCode     domain.ServiceCode
	DisplayName     string
	Phone           string
	CreatedAt       time.Time
}
