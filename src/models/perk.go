package models

import "mintix/src/types"

// PerkRedemption tracks per-token perk usage. Rows are created lazily on
// the first metadata read that mentions the perk, so a missing row never
// hides a perk from the holder.
type PerkRedemption struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	TokenID  uint64 `gorm:"uniqueIndex:uq_perks_token_perk,priority:1" json:"token_id"`
	Perk     string `gorm:"uniqueIndex:uq_perks_token_perk,priority:2" json:"perk"`
	Redeemed bool   `gorm:"default:false" json:"redeemed"`

	types.Timestamps
}
