package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"mintix/src/models"
	"mintix/src/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// mintedToken builds a fully minted ticket the projector can read.
func mintedToken(t *testing.T, d *gorm.DB, artwork string) (*models.Event, *models.MintRecord) {
	t.Helper()
	event, tier := seedEventWithTier(t, d, nil)
	seedRegistry(t, d, event, tier)
	installStubChain(t, &stubChain{})
	if artwork != "" {
		require.NoError(t, d.Model(event).Update("artwork_url", artwork).Error)
	}

	charge := seedConfirmedCharge(t, d, event.ID, tier.Name, "0xabc")
	outcome, err := Mint(context.Background(), charge.ID)
	require.NoError(t, err)

	var record models.MintRecord
	require.NoError(t, d.First(&record, "token_id = ?", outcome.TokenID).Error)
	return event, &record
}

func TestProjectMetadataActiveTicket(t *testing.T) {
	d := newTestDB(t)
	event, record := mintedToken(t, d, "https://assets.example.com/art.png")
	installStubChain(t, &stubChain{state: types.CHAIN_TICKET_ACTIVE})

	// Genesis tickets reveal regardless of attendance; this is the first
	// mint for the event, so the override applies.
	metadata, err := ProjectMetadata(context.Background(), record.TokenID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, metadata.EventID)
	assert.Equal(t, "active", metadata.State)
	assert.Equal(t, StateSourceChain, metadata.StateSource)
	assert.True(t, metadata.Genesis)
	assert.True(t, metadata.Revealed)
	assert.Equal(t, "https://assets.example.com/art.png", metadata.ArtworkURL)
	assert.Equal(t, "GENERAL-ADMISSION", metadata.Section)
}

func TestProjectMetadataWithholdsArtworkBeforeAttendance(t *testing.T) {
	d := newTestDB(t)
	event, _ := mintedToken(t, d, "https://assets.example.com/art.png")

	// Second token: not genesis, still active, so the artwork stays
	// behind the placeholder.
	var tier models.TicketTier
	require.NoError(t, d.First(&tier, "event_id = ?", event.ID).Error)
	charge := seedConfirmedCharge(t, d, event.ID, tier.Name, "0xbbb")
	outcome, err := Mint(context.Background(), charge.ID)
	require.NoError(t, err)
	require.False(t, outcome.Genesis)

	installStubChain(t, &stubChain{state: types.CHAIN_TICKET_ACTIVE})
	metadata, err := ProjectMetadata(context.Background(), outcome.TokenID)
	require.NoError(t, err)
	assert.False(t, metadata.Revealed)
	assert.Equal(t, placeholderArtworkURL(), metadata.ArtworkURL)

	// Attendance flips the gate.
	installStubChain(t, &stubChain{state: types.CHAIN_TICKET_USED})
	metadata, err = ProjectMetadata(context.Background(), outcome.TokenID)
	require.NoError(t, err)
	assert.True(t, metadata.Revealed)
	assert.Equal(t, "used", metadata.State)
}

func TestProjectMetadataFallbackAfterEventEnd(t *testing.T) {
	d := newTestDB(t)
	event, record := mintedToken(t, d, "")
	ended := time.Now().Add(-2 * time.Hour)
	require.NoError(t, d.Model(event).Update("ends_at", &ended).Error)
	installStubChain(t, &stubChain{stateErr: errors.New("rpc timeout")})

	metadata, err := ProjectMetadata(context.Background(), record.TokenID)
	require.NoError(t, err)
	assert.Equal(t, "souvenir", metadata.State)
	assert.Equal(t, StateSourceFallback, metadata.StateSource)
	// No approved artwork: nothing to reveal even for genesis.
	assert.False(t, metadata.Revealed)
	assert.Equal(t, placeholderArtworkURL(), metadata.ArtworkURL)
}

func TestProjectMetadataFallbackBeforeEventEnd(t *testing.T) {
	d := newTestDB(t)
	_, record := mintedToken(t, d, "")
	installStubChain(t, &stubChain{stateErr: errors.New("rpc timeout")})

	metadata, err := ProjectMetadata(context.Background(), record.TokenID)
	require.NoError(t, err)
	assert.Equal(t, "active", metadata.State)
	assert.Equal(t, StateSourceFallback, metadata.StateSource)
}

func TestProjectMetadataCreatesPerkRowsLazily(t *testing.T) {
	d := newTestDB(t)
	_, record := mintedToken(t, d, "")
	installStubChain(t, &stubChain{state: types.CHAIN_TICKET_ACTIVE})

	var before int64
	require.NoError(t, d.Model(&models.PerkRedemption{}).Where("token_id = ?", record.TokenID).Count(&before).Error)
	assert.Zero(t, before)

	metadata, err := ProjectMetadata(context.Background(), record.TokenID)
	require.NoError(t, err)
	require.NotEmpty(t, metadata.Perks)
	for _, perk := range metadata.Perks {
		assert.False(t, perk.Redeemed)
	}

	var after int64
	require.NoError(t, d.Model(&models.PerkRedemption{}).Where("token_id = ?", record.TokenID).Count(&after).Error)
	assert.EqualValues(t, len(metadata.Perks), after)

	// Redemptions survive subsequent reads untouched.
	require.NoError(t, d.Model(&models.PerkRedemption{}).
		Where("token_id = ? AND perk = ?", record.TokenID, metadata.Perks[0].Perk).
		Update("redeemed", true).Error)
	metadata, err = ProjectMetadata(context.Background(), record.TokenID)
	require.NoError(t, err)
	assert.True(t, metadata.Perks[0].Redeemed)
}

func TestProjectMetadataUnknownToken(t *testing.T) {
	newTestDB(t)
	installStubChain(t, &stubChain{})

	_, err := ProjectMetadata(context.Background(), 42_000_123)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestFallbackTicketState(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.Equal(t, types.CHAIN_TICKET_SOUVENIR, fallbackTicketState(&past, now))
	assert.Equal(t, types.CHAIN_TICKET_ACTIVE, fallbackTicketState(&future, now))
	assert.Equal(t, types.CHAIN_TICKET_ACTIVE, fallbackTicketState(nil, now))
}

func TestRevealArtwork(t *testing.T) {
	cases := []struct {
		name       string
		state      types.ChainTicketState
		genesis    bool
		hasArtwork bool
		expected   bool
	}{
		{"active unrevealed", types.CHAIN_TICKET_ACTIVE, false, true, false},
		{"used reveals", types.CHAIN_TICKET_USED, false, true, true},
		{"souvenir reveals", types.CHAIN_TICKET_SOUVENIR, false, true, true},
		{"genesis overrides attendance", types.CHAIN_TICKET_ACTIVE, true, true, true},
		{"no artwork never reveals", types.CHAIN_TICKET_SOUVENIR, true, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RevealArtwork(tc.state, tc.genesis, tc.hasArtwork))
		})
	}
}

func TestPerksForToken(t *testing.T) {
	base := perksForToken(false, decimal.NewFromInt(1))
	assert.Equal(t, []string{"merch_discount"}, base)

	vip := perksForToken(false, decimal.NewFromInt(3))
	assert.Contains(t, vip, "vip_lounge")

	genesis := perksForToken(true, decimal.NewFromInt(1))
	assert.Contains(t, genesis, "genesis_airdrop")
}
