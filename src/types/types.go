package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("unsupported source type for JSONB")
}

type Metadata = JSONB

type EventStatus string

const (
	EVENT_DRAFT  EventStatus = "draft"
	EVENT_OPEN   EventStatus = "open"
	EVENT_CLOSED EventStatus = "closed"
)

type TicketStatus string

const (
	TICKET_RESERVED TicketStatus = "reserved"
	TICKET_MINTED   TicketStatus = "minted"
	TICKET_CANCELED TicketStatus = "canceled"
	TICKET_USED     TicketStatus = "used"
	TICKET_SOUVENIR TicketStatus = "souvenir"
)

type ChargeStatus string

const (
	CHARGE_PENDING   ChargeStatus = "pending"
	CHARGE_CONFIRMED ChargeStatus = "confirmed"
	CHARGE_FAILED    ChargeStatus = "failed"
)

// ChainTicketState is the on-chain lifecycle of a minted ticket token.
// Ordering matters: reveal gating checks state >= CHAIN_TICKET_USED.
type ChainTicketState int

const (
	CHAIN_TICKET_ACTIVE ChainTicketState = iota
	CHAIN_TICKET_USED
	CHAIN_TICKET_SOUVENIR
)

func (s ChainTicketState) String() string {
	switch s {
	case CHAIN_TICKET_USED:
		return "used"
	case CHAIN_TICKET_SOUVENIR:
		return "souvenir"
	default:
		return "active"
	}
}

type PaymentMethod string

const (
	PAYMENT_METHOD_WALLET PaymentMethod = "wallet"
	PAYMENT_METHOD_CARD   PaymentMethod = "card"
)

// Webhook outcome kinds, logged but never surfaced to the provider: the
// webhook route acks every delivery to stop redelivery storms.
type WebhookResult string

const (
	WEBHOOK_PROCESSED         WebhookResult = "Processed"
	WEBHOOK_INVALID_SIGNATURE WebhookResult = "InvalidSignature"
	WEBHOOK_DUPLICATE_EVENT   WebhookResult = "DuplicateEvent"
	WEBHOOK_PROCESSING_ERROR  WebhookResult = "ProcessingError"
	WEBHOOK_IGNORED           WebhookResult = "Ignored"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type ReserveRequestBody struct {
	EventID       uint            `json:"event_id" binding:"required"`
	TierName      string          `json:"tier_name" binding:"required"`
	Quantity      uint            `json:"quantity,omitempty"`
	TotalPrice    decimal.Decimal `json:"total_price,omitempty"`
	WalletAddress *string         `json:"wallet_address,omitempty"`
	Email         string          `json:"email" binding:"required,email"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
}

// Defaults documented here rather than scattered through the handler:
// quantity defaults to 1, payment method to "wallet" (no gateway call).
func (b *ReserveRequestBody) ApplyDefaults() {
	if b.Quantity == 0 {
		b.Quantity = 1
	}
	if b.PaymentMethod == "" {
		b.PaymentMethod = PAYMENT_METHOD_WALLET
	}
}

type CreateEventRequestBody struct {
	Title    string `json:"title" binding:"required"`
	Location string `json:"location,omitempty"`
	StartsAt string `json:"starts_at" binding:"required,bookabledate"`
	EndsAt   string `json:"ends_at" binding:"required,gtdate=StartsAt"`

	// Approved collectible artwork. Optional at creation; reveal gating
	// treats its absence as "nothing to reveal yet".
	ArtworkURL *string `json:"artwork_url,omitempty"`
}

type CreateTierRequestBody struct {
	Name             string          `json:"name" binding:"required"`
	Capacity         *uint           `json:"capacity,omitempty"`
	PriceAmount      decimal.Decimal `json:"price_amount" binding:"required"`
	Currency         string          `json:"currency,omitempty"`
	RarityMultiplier decimal.Decimal `json:"rarity_multiplier,omitempty"`
	SeatsPerRow      uint            `json:"seats_per_row,omitempty"`
}

type RegisterChainRequestBody struct {
	TierID       uint   `json:"tier_id" binding:"required"`
	ChainEventID uint64 `json:"chain_event_id" binding:"required"`
	ChainTierID  uint64 `json:"chain_tier_id" binding:"required"`
	Contract     string `json:"contract" binding:"required"`
}
