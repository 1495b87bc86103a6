package models

import (
	"mintix/src/types"

	"github.com/shopspring/decimal"
)

// TicketTier is a named ticket class within an Event. Capacity is a hard
// ceiling on issued (reserved+minted) tickets; nil means unlimited.
type TicketTier struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	EventID     uint   `gorm:"uniqueIndex:uq_tiers_event_name,priority:1" json:"event_id,omitempty"`
	Name        string `gorm:"uniqueIndex:uq_tiers_event_name,priority:2" json:"name,omitempty"`
	Capacity    *uint  `json:"capacity,omitempty"`
	Active      bool   `gorm:"default:true" json:"active"`
	PriceAmount decimal.Decimal `gorm:"type:numeric" json:"price_amount"`
	Currency    string          `gorm:"default:'usd'" json:"currency,omitempty"`

	// RarityMultiplier is the single source of truth for tier rarity.
	// Tier-name matching was retired in favor of this field.
	RarityMultiplier decimal.Decimal `gorm:"type:numeric;default:1" json:"rarity_multiplier"`

	// SeatsPerRow feeds the fixed seat-descriptor arithmetic.
	SeatsPerRow uint `gorm:"default:10" json:"seats_per_row,omitempty"`

	Event Event `json:"event,omitempty"`

	types.Timestamps
}
