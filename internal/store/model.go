package store

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one shared receipt-splitting instance. A session is
// immutable after creation except for per-item claim/paid state, the tip
// override, and the initiator block.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	// Merchant information from the parsed receipt
	MerchantName    string `json:"merchant_name" gorm:"size:255"`
	MerchantType    string `json:"merchant_type" gorm:"size:255"`
	MerchantAddress string `json:"merchant_address" gorm:"size:512"`

	// Transaction totals
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	Tip         float64 `json:"tip"`
	Total       float64 `json:"total"`
	IsManualTip bool    `json:"is_manual_tip"`

	// Initiator payout handles, set by the session owner
	InitiatorCashTag     string `json:"initiator_cash_tag" gorm:"size:255"`
	InitiatorVenmoHandle string `json:"initiator_venmo_handle" gorm:"size:255"`
	InitiatorName        string `json:"initiator_name" gorm:"size:255"`

	Items []LineItem `json:"items,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// LineItem is a single receipt line. The claim/paid fields are the only
// mutable part and are only ever touched through the claim coordinator.
type LineItem struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	SessionID uuid.UUID `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_session_item"`
	ItemID    string    `json:"item_id" gorm:"type:char(36);not null;uniqueIndex:idx_session_item"`

	Quantity    float64 `json:"quantity"`
	Description string  `json:"description" gorm:"size:512"`
	Price       float64 `json:"price"`

	IsChecked bool   `json:"is_checked"`
	IsPaid    bool   `json:"is_paid"`
	PaidBy    string `json:"paid_by" gorm:"size:255"`

	Claims []Claim `json:"claims,omitempty" gorm:"foreignKey:SessionID,ItemID;references:SessionID,ItemID;constraint:OnDelete:CASCADE"`
}

// Claim is one connection's claim on one line item. One row per
// (session, item, connection); the unique index makes set-add idempotent.
type Claim struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	SessionID    uuid.UUID `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_claim"`
	ItemID       string    `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_claim"`
	ConnectionID string    `json:"connection_id" gorm:"size:255;not null;uniqueIndex:idx_claim"`
}

// CheckedBy returns the set of connection ids currently claiming the item
func (li *LineItem) CheckedBy() []string {
	ids := make([]string, 0, len(li.Claims))
	for _, claim := range li.Claims {
		ids = append(ids, claim.ConnectionID)
	}
	return ids
}

// Item looks up a line item by its stable id, or nil if not present
func (s *Session) Item(itemID string) *LineItem {
	for i := range s.Items {
		if s.Items[i].ItemID == itemID {
			return &s.Items[i]
		}
	}
	return nil
}

// Initiator holds the payout handles the session owner shares with the room
type Initiator struct {
	CashTag     string `json:"cashTag"`
	VenmoHandle string `json:"venmoHandle"`
	HumanName   string `json:"humanName"`
}

// ItemStatus is a partial update of a line item's collaborative fields. Nil
// fields are left untouched.
type ItemStatus struct {
	IsChecked *bool     `json:"isChecked,omitempty"`
	CheckedBy *[]string `json:"checkedBy,omitempty"`
	IsPaid    *bool     `json:"isPaid,omitempty"`
	PaidBy    *string   `json:"paidBy,omitempty"`
}
