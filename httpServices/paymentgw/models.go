package paymentgw

import "time"

// ConfirmRequest captures an authorized payment. Amount must already have
// been checked against our own records before calling Confirm.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int    `json:"amount"`
}

// CancelRequest cancels a captured payment, fully or partially.
type CancelRequest struct {
	CancelReason string `json:"cancelReason"`
	CancelAmount *int   `json:"cancelAmount,omitempty"`
}

// Cancel is one cancellation record returned by the gateway.
type Cancel struct {
	CancelAmount int        `json:"cancelAmount"`
	CancelReason string     `json:"cancelReason"`
	CanceledAt   *time.Time `json:"canceledAt,omitempty"`
}

// Payment is the gateway's payment object, reduced to the fields we mirror.
type Payment struct {
	PaymentKey  string     `json:"paymentKey"`
	OrderID     string     `json:"orderId"`
	Status      string     `json:"status"`
	Method      string     `json:"method"`
	TotalAmount int        `json:"totalAmount"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	Cancels     []Cancel   `json:"cancels,omitempty"`
}

// WebhookEvent is the inbound async event envelope.
type WebhookEvent struct {
	EventType string       `json:"eventType"`
	CreatedAt string       `json:"createdAt"`
	Data      WebhookData  `json:"data"`
}

// WebhookData carries the payment state the event refers to.
type WebhookData struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
}

// apiError is the gateway's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
