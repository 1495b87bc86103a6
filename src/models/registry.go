package models

import "mintix/src/types"

// ChainRegistry maps a local (event, tier) pair to its chain-native
// identifiers. A tier with no registry row cannot be minted; that is a
// terminal configuration error, never a retry.
type ChainRegistry struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	EventID      uint   `gorm:"uniqueIndex:uq_registry_event_tier,priority:1" json:"event_id,omitempty"`
	TierID       uint   `gorm:"uniqueIndex:uq_registry_event_tier,priority:2" json:"tier_id,omitempty"`
	ChainEventID uint64 `json:"chain_event_id,omitempty"`
	ChainTierID  uint64 `json:"chain_tier_id,omitempty"`
	Contract     string `json:"contract,omitempty"`

	types.Timestamps
}
