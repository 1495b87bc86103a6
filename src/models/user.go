package models

import "mintix/src/types"

type User struct {
	ID            uint    `gorm:"primarykey" json:"id"`
	Email         string  `gorm:"uniqueIndex" json:"email,omitempty"`
	WalletAddress *string `gorm:"index" json:"wallet_address,omitempty"`

	types.Timestamps
}
