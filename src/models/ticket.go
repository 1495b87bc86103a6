package models

import (
	"mintix/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is one seat/admission unit. The (event_id, tier_id, ordinal)
// unique index is the race backstop for concurrent allocation: two inserts
// can pass the in-transaction capacity check, but only one wins the index.
type Ticket struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Identifier uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"identifier"`
	EventID    uint      `gorm:"uniqueIndex:uq_tickets_seat,priority:1" json:"event_id,omitempty"`
	TierID     uint      `gorm:"uniqueIndex:uq_tickets_seat,priority:2" json:"tier_id,omitempty"`
	Ordinal    uint      `gorm:"uniqueIndex:uq_tickets_seat,priority:3" json:"ordinal"`

	Section string `json:"section,omitempty"`
	Row     uint   `json:"row,omitempty"`
	Seat    uint   `json:"seat,omitempty"`

	Status  types.TicketStatus `gorm:"default:'reserved'" json:"status,omitempty"`
	UserID  *uint              `json:"user_id,omitempty"`
	TokenID *uint64            `json:"token_id,omitempty"`

	Event Event      `json:"event,omitempty"`
	Tier  TicketTier `gorm:"foreignKey:tier_id" json:"tier,omitempty"`
	User  *User      `json:"user,omitempty"`

	types.Timestamps
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.Identifier == uuid.Nil {
		t.Identifier = uuid.New()
	}
	return nil
}
