package dto

import "time"

type WebhookAckResponse struct {
	TraceID   string    `json:"traceId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type WebhookErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
