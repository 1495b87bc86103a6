package models

import (
	"mintix/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Charge is one payment attempt, gateway-agnostic, tied to exactly one
// Ticket. A ticket may accumulate failed charges but holds at most one
// pending-or-confirmed charge at a time (application-enforced).
type Charge struct {
	ID       uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	TicketID uint      `json:"ticket_id,omitempty"`

	ExternalID string `gorm:"index" json:"external_id,omitempty"`
	HostedURL  string `json:"hosted_url,omitempty"`

	Status        types.ChargeStatus `gorm:"default:'pending'" json:"status,omitempty"`
	WalletAddress *string            `gorm:"index" json:"wallet_address,omitempty"`
	Email         string             `json:"email,omitempty"`
	TierName      string             `json:"tier_name,omitempty"`

	Amount   decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Currency string          `gorm:"default:'usd'" json:"currency,omitempty"`

	// Metadata mirrors what was sent to the gateway at charge creation, so
	// support can correlate a row with the provider's dashboard entry.
	Metadata types.Metadata `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Mint outcome. Errors are persisted here rather than propagated:
	// a failed mint may be retried hours later by an operator or the
	// retry job, long after the original request is gone.
	MintError  *string `json:"mint_error,omitempty"`
	RetryCount uint    `gorm:"default:0" json:"retry_count"`
	TokenID    *uint64 `json:"token_id,omitempty"`
	TxHash     *string `json:"tx_hash,omitempty"`

	UserID *uint `json:"user_id,omitempty"`

	Ticket Ticket `json:"ticket,omitempty"`
	User   *User  `json:"user,omitempty"`

	types.Timestamps
}

func (c *Charge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
