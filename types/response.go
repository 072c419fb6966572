package types

// ApiResponse is the envelope every handler returns.
// Error carries a machine-readable code (e.g. AMOUNT_MISMATCH) when Success is false.
type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Error   string      `json:"error,omitempty"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
