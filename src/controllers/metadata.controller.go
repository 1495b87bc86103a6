package controllers

import (
	"context"
	"errors"
	"log"
	"mintix/src/config"
	"mintix/src/db"
	"mintix/src/lib"
	"mintix/src/models"
	"mintix/src/types"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("token not found")

const (
	StateSourceChain    = "chain"
	StateSourceFallback = "fallback"
)

type PerkStatus struct {
	Perk     string `json:"perk"`
	Redeemed bool   `json:"redeemed"`
}

type TokenMetadata struct {
	TokenID    uint64 `json:"token_id"`
	EventID    uint   `json:"event_id"`
	EventTitle string `json:"event_title"`
	TierName   string `json:"tier_name"`

	Section string `json:"section,omitempty"`
	Row     uint   `json:"row,omitempty"`
	Seat    uint   `json:"seat,omitempty"`

	State string `json:"state"`
	// StateSource is "chain" for authoritative reads and "fallback" when
	// the state was derived from the event clock. Fallback states can be
	// wrong and must be labeled as such everywhere they surface.
	StateSource string `json:"state_source"`

	Genesis bool            `json:"genesis"`
	Rarity  decimal.Decimal `json:"rarity"`

	Revealed   bool   `json:"revealed"`
	ArtworkURL string `json:"artwork_url"`

	Perks []PerkStatus `json:"perks"`
}

func placeholderArtworkURL() string {
	if v := os.Getenv("PLACEHOLDER_ARTWORK_URL"); v != "" {
		return v
	}
	return "https://assets.mintix.io/placeholder.png"
}

// fallbackTicketState guesses the ticket state from the event clock when
// the chain is unreachable. A finished event means the holder most likely
// attended, so the token is presented as souvenir-eligible.
func fallbackTicketState(endsAt *time.Time, now time.Time) types.ChainTicketState {
	if endsAt != nil && endsAt.Before(now) {
		return types.CHAIN_TICKET_SOUVENIR
	}
	return types.CHAIN_TICKET_ACTIVE
}

// RevealArtwork decides whether the collectible artwork is shown. Pure
// function of attendance proof (or the genesis override) and whether
// approved artwork exists for the event at all.
func RevealArtwork(state types.ChainTicketState, genesis bool, hasArtwork bool) bool {
	if !hasArtwork {
		return false
	}
	return genesis || state >= types.CHAIN_TICKET_USED
}

// perksForToken lists the perks a token is entitled to. The list is
// derived, not stored: redemption rows exist only for tracking.
func perksForToken(genesis bool, rarity decimal.Decimal) []string {
	perks := []string{"merch_discount"}
	if rarity.GreaterThan(decimal.NewFromInt(1)) {
		perks = append(perks, "vip_lounge")
	}
	if genesis {
		perks = append(perks, "genesis_airdrop")
	}
	return perks
}

// ProjectMetadata assembles the externally-visible view of one token. It
// is read-only apart from lazily creating missing perk-redemption rows,
// so a perk is never hidden just because its tracking row does not exist.
func ProjectMetadata(ctx context.Context, tokenId uint64) (*TokenMetadata, error) {
	gdb := db.GetDb()

	// eventId is packed into the token id by the minting service. This
	// arithmetic is a shared contract, not an optimization.
	eventId := uint(tokenId / config.TokenIDEventEncoding)

	var event models.Event
	if err := gdb.First(&event, "id = ?", eventId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	var record models.MintRecord
	if err := gdb.First(&record, "token_id = ?", tokenId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	var ticket models.Ticket
	if err := gdb.Preload("Tier").First(&ticket, "id = ?", record.TicketID).Error; err != nil {
		return nil, err
	}

	state, source := types.CHAIN_TICKET_ACTIVE, StateSourceChain
	chainState, err := lib.GetChainClient().ReadTicketState(ctx, tokenId)
	if err != nil {
		state = fallbackTicketState(event.EndsAt, time.Now())
		source = StateSourceFallback
		log.Printf("[Metadata] chain read for token %d failed, serving fallback state %s: %s\n", tokenId, state, err.Error())
	} else {
		state = chainState
	}

	hasArtwork := event.ArtworkURL != nil && *event.ArtworkURL != ""
	revealed := RevealArtwork(state, record.Genesis, hasArtwork)
	artwork := placeholderArtworkURL()
	if revealed {
		artwork = *event.ArtworkURL
	}

	perks := make([]PerkStatus, 0, 3)
	for _, perk := range perksForToken(record.Genesis, record.RarityMultiplier) {
		row := models.PerkRedemption{TokenID: tokenId, Perk: perk}
		if err := gdb.Where(&models.PerkRedemption{TokenID: tokenId, Perk: perk}).FirstOrCreate(&row).Error; err != nil {
			return nil, err
		}
		perks = append(perks, PerkStatus{Perk: perk, Redeemed: row.Redeemed})
	}

	return &TokenMetadata{
		TokenID:     tokenId,
		EventID:     event.ID,
		EventTitle:  event.Title,
		TierName:    ticket.Tier.Name,
		Section:     ticket.Section,
		Row:         ticket.Row,
		Seat:        ticket.Seat,
		State:       state.String(),
		StateSource: source,
		Genesis:     record.Genesis,
		Rarity:      record.RarityMultiplier,
		Revealed:    revealed,
		ArtworkURL:  artwork,
		Perks:       perks,
	}, nil
}
