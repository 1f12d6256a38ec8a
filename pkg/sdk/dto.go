package sdk

import "encoding/json"

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  string `json:"status"`          // Status message
	Code    int    `json:"code"`            // Status code
	Message string `json:"message"`         // Human-readable message
	Data    T      `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any    `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	resp := ApiResponse[any]{
		Status:  StatusError,
		Code:    code,
		Message: message,
	}
	if e, ok := err.(error); ok {
		resp.Error = e.Error()
	} else {
		resp.Error = err
	}
	return resp
}

/** Requests */

// ParseReceiptRequest carries a base64-encoded receipt image for parsing
type ParseReceiptRequest struct {
	Image string `json:"image" binding:"required"`
}

// SetInitiatorRequest sets the session owner's payout handles
type SetInitiatorRequest struct {
	CashTag     string `json:"cashTag"`
	VenmoHandle string `json:"venmoHandle"`
	HumanName   string `json:"humanName"`
}

// SetTipRequest overrides the parsed tip amount
type SetTipRequest struct {
	Tip float64 `json:"tip"`
}

// ItemStatus is a partial item update; nil fields are left untouched
type ItemStatus struct {
	IsChecked *bool     `json:"isChecked,omitempty"`
	CheckedBy *[]string `json:"checkedBy,omitempty"`
	IsPaid    *bool     `json:"isPaid,omitempty"`
	PaidBy    *string   `json:"paidBy,omitempty"`
}

// BulkStatusRequest applies a partial status update to a batch of items
type BulkStatusRequest struct {
	ItemIDs []string   `json:"itemIds" binding:"required"`
	Status  ItemStatus `json:"status"`
}

/** Responses */

// ParseReceiptResponse returns the id of the freshly stored session
type ParseReceiptResponse struct {
	SessionID string `json:"sessionId"`
}

// Merchant describes the receipt's vendor
type Merchant struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

// ReceiptItem is one line item with its collaborative state
type ReceiptItem struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	Price       float64  `json:"price"`
	IsChecked   bool     `json:"isChecked"`
	CheckedBy   []string `json:"checkedBy"`
	IsPaid      bool     `json:"isPaid"`
	PaidBy      string   `json:"paidBy,omitempty"`
}

// Transaction carries the receipt totals
type Transaction struct {
	Items float64 `json:"items"`
	Tip   float64 `json:"tip"`
	Tax   float64 `json:"tax"`
	Total float64 `json:"total"`
}

// Initiator is the owner's payout information
type Initiator struct {
	CashTag     string `json:"cashTag,omitempty"`
	VenmoHandle string `json:"venmoHandle,omitempty"`
	HumanName   string `json:"humanName,omitempty"`
}

// ReceiptResponse is the full session view returned by the receipt API
type ReceiptResponse struct {
	Merchant    Merchant      `json:"merchant"`
	Items       []ReceiptItem `json:"items"`
	Transaction Transaction   `json:"transaction"`
	Initiator   Initiator     `json:"initiator"`
}

// QRCodeResponse carries a session join link and its rendered QR code
type QRCodeResponse struct {
	URL    string `json:"url"`
	QRCode string `json:"qrCode"`
}
