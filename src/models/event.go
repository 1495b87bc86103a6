package models

import (
	"mintix/src/types"
	"time"
)

type Event struct {
	ID       uint              `gorm:"primarykey" json:"id"`
	Title    string            `json:"title,omitempty"`
	Slug     string            `gorm:"uniqueIndex" json:"slug,omitempty"`
	Location string            `json:"location,omitempty"`
	StartsAt *time.Time        `json:"starts_at,omitempty"`
	EndsAt   *time.Time        `json:"ends_at,omitempty"`
	Status   types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`

	// ArtworkURL is withheld from metadata until the ticket is used.
	ArtworkURL *string `json:"artwork_url,omitempty"`

	Tiers []TicketTier `gorm:"foreignKey:event_id" json:"tiers,omitempty"`

	types.Timestamps
}
