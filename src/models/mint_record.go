package models

import (
	"mintix/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MintRecord is the denormalized audit row created once per on-chain mint,
// keyed by (token_id, contract) so a retried mint after a partial failure
// never duplicates it. Marketplace lookups read this table, not the chain.
type MintRecord struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	TokenID  uint64 `gorm:"uniqueIndex:uq_mint_records_token,priority:1" json:"token_id"`
	Contract string `gorm:"uniqueIndex:uq_mint_records_token,priority:2" json:"contract"`

	ChargeID uuid.UUID `gorm:"type:uuid" json:"charge_id"`
	TicketID uint      `json:"ticket_id"`
	// The partial unique index makes the genesis flag first-wins: at most
	// one genesis row can exist per event, no matter how mints interleave.
	EventID uint `gorm:"index;index:uq_mint_records_genesis,unique,where:genesis" json:"event_id"`

	TxHash string `json:"tx_hash,omitempty"`

	// Genesis marks the first token ever minted for the event; it carries
	// a fixed rarity override downstream.
	Genesis          bool            `json:"genesis"`
	RarityMultiplier decimal.Decimal `gorm:"type:numeric" json:"rarity_multiplier"`

	types.Timestamps
}
