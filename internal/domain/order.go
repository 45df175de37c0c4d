package domain

import "time"

type Order struct {
	ID          int64
	CustomerID  int64
	ServiceCode ServiceCode
	CreatedAt   time.Time
}
