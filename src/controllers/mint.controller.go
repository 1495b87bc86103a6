package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mintix/src/config"
	"mintix/src/db"
	"mintix/src/lib"
	"mintix/src/models"
	"mintix/src/types"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrChargeNotFound = errors.New("charge not found")
	ErrNotEligible    = errors.New("charge is not eligible for minting")
	// ErrNotRegistered is terminal: the (event, tier) pair has no chain
	// registry row, so retrying cannot help until an operator registers it.
	ErrNotRegistered = errors.New("tier is not registered on chain")
	ErrMintFailed    = errors.New("mint did not complete")
)

const notRegisteredPrefix = "NotRegistered"

type MintOutcome struct {
	TokenID uint64 `json:"token_id"`
	TxHash  string `json:"tx_hash"`
	Genesis bool   `json:"genesis"`
}

func GetCharge(id uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	if err := db.GetDb().Preload("Ticket").First(&charge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	return &charge, nil
}

// recordMintFailure parks the charge in failed with a durable error. The
// payment itself stays settled; failed-with-mint-error is the retryable
// state the sweep and the operator endpoint pick up from.
func recordMintFailure(chargeId uuid.UUID, cause error) {
	gdb := db.GetDb()
	if err := gdb.Model(&models.Charge{}).Where("id = ?", chargeId).Updates(map[string]any{
		"status":      types.CHARGE_FAILED,
		"mint_error":  cause.Error(),
		"retry_count": gorm.Expr("retry_count + 1"),
	}).Error; err != nil {
		log.Printf("[Mint] could not record failure on charge %s: %s\n", chargeId, err.Error())
	}
}

// Mint drives one charge through simulate, submit and confirmation, then
// persists the outcome. Safe to call repeatedly for the same charge: an
// already-minted charge short-circuits with its existing token.
func Mint(ctx context.Context, chargeId uuid.UUID) (*MintOutcome, error) {
	gdb := db.GetDb()

	var charge models.Charge
	if err := gdb.Preload("Ticket").First(&charge, "id = ?", chargeId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	if charge.TokenID != nil {
		var record models.MintRecord
		if err := gdb.First(&record, "charge_id = ?", charge.ID).Error; err != nil {
			return nil, err
		}
		return &MintOutcome{TokenID: record.TokenID, TxHash: record.TxHash, Genesis: record.Genesis}, nil
	}
	// Eligible: payment confirmed, or a previous mint attempt parked the
	// charge in failed with its error recorded. A failed charge without a
	// mint error is a payment failure and never mints.
	eligible := charge.Status == types.CHARGE_CONFIRMED ||
		(charge.Status == types.CHARGE_FAILED && charge.MintError != nil)
	if !eligible {
		return nil, fmt.Errorf("%w: status is %s", ErrNotEligible, charge.Status)
	}
	ticket := charge.Ticket
	if ticket.ID == 0 || ticket.Status != types.TICKET_RESERVED {
		return nil, fmt.Errorf("%w: ticket is %s", ErrNotEligible, ticket.Status)
	}
	if charge.WalletAddress == nil || *charge.WalletAddress == "" {
		err := fmt.Errorf("%w: no recipient wallet on charge", ErrMintFailed)
		recordMintFailure(charge.ID, err)
		return nil, err
	}

	var registry models.ChainRegistry
	if err := gdb.First(&registry, "event_id = ? AND tier_id = ?", ticket.EventID, ticket.TierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cause := fmt.Errorf("%s: event %d tier %d", notRegisteredPrefix, ticket.EventID, ticket.TierID)
			recordMintFailure(charge.ID, cause)
			return nil, ErrNotRegistered
		}
		return nil, err
	}

	args := &lib.MintArgs{
		ChainEventID: registry.ChainEventID,
		ChainTierID:  registry.ChainTierID,
		Contract:     registry.Contract,
		Recipient:    *charge.WalletAddress,
		Ordinal:      ticket.Ordinal,
	}

	// Chain calls happen outside any DB transaction: a mint can take
	// minutes and must never hold row locks while it waits.
	chain := lib.GetChainClient()
	if err := chain.Simulate(ctx, args); err != nil {
		cause := fmt.Errorf("simulation reverted: %s", err.Error())
		recordMintFailure(charge.ID, cause)
		return nil, fmt.Errorf("%w: %s", ErrMintFailed, cause.Error())
	}
	txHash, err := chain.Submit(ctx, args)
	if err != nil {
		cause := fmt.Errorf("submit failed: %s", err.Error())
		recordMintFailure(charge.ID, cause)
		return nil, fmt.Errorf("%w: %s", ErrMintFailed, cause.Error())
	}
	log.Printf("[Mint] charge %s submitted as %s\n", charge.ID, txHash)
	receipt, err := chain.WaitForConfirmation(ctx, txHash)
	if err != nil {
		cause := fmt.Errorf("tx %s: %s", txHash, err.Error())
		recordMintFailure(charge.ID, cause)
		return nil, fmt.Errorf("%w: %s", ErrMintFailed, cause.Error())
	}

	outcome, err := persistMint(gdb, &charge, &ticket, receipt)
	if err != nil {
		recordMintFailure(charge.ID, err)
		return nil, err
	}
	log.Printf("[Mint] charge %s minted token %d (tx %s)\n", charge.ID, outcome.TokenID, outcome.TxHash)
	return outcome, nil
}

// genesisUnclaimed reports whether the event has no genesis token yet.
// Indirected so tests can replay a lost claim.
var genesisUnclaimed = func(tx *gorm.DB, eventId uint) (bool, error) {
	var prior int64
	err := tx.Model(&models.MintRecord{}).Where("event_id = ? AND genesis", eventId).Count(&prior).Error
	return prior == 0, err
}

func persistMint(gdb *gorm.DB, charge *models.Charge, ticket *models.Ticket, receipt *lib.MintReceipt) (*MintOutcome, error) {
	var outcome MintOutcome
	err := gdb.Transaction(func(tx *gorm.DB) error {
		claim, err := genesisUnclaimed(tx, ticket.EventID)
		if err != nil {
			return err
		}

		rarity := decimal.NewFromInt(1)
		var tier models.TicketTier
		if err := tx.First(&tier, "id = ?", ticket.TierID).Error; err == nil {
			rarity = tier.RarityMultiplier
		}

		record := models.MintRecord{
			TokenID:          receipt.TokenID,
			Contract:         receipt.Contract,
			ChargeID:         charge.ID,
			TicketID:         ticket.ID,
			EventID:          ticket.EventID,
			TxHash:           receipt.TxHash,
			Genesis:          claim,
			RarityMultiplier: rarity,
		}
		if claim {
			// Two concurrent first mints can both read an unclaimed slot
			// before either commits. The unique index on (event_id) WHERE
			// genesis settles the claim; the loser rolls back to the
			// savepoint and lands as a regular token.
			record.RarityMultiplier, _ = decimal.NewFromString(config.GENESIS_RARITY_MULTIPLIER)
			if err := tx.SavePoint("genesis_claim").Error; err != nil {
				return err
			}
			if err := tx.Create(&record).Error; err != nil {
				if classifyInsertErr(err) != insertConflict {
					return err
				}
				if err := tx.RollbackTo("genesis_claim").Error; err != nil {
					return err
				}
				record.ID = 0
				record.Genesis = false
				record.RarityMultiplier = rarity
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		} else if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Ticket{}).Where("id = ?", ticket.ID).Updates(map[string]any{
			"status":   types.TICKET_MINTED,
			"token_id": receipt.TokenID,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Charge{}).Where("id = ?", charge.ID).Updates(map[string]any{
			"status":     types.CHARGE_CONFIRMED,
			"token_id":   receipt.TokenID,
			"tx_hash":    receipt.TxHash,
			"mint_error": nil,
		}).Error; err != nil {
			return err
		}
		outcome = MintOutcome{TokenID: receipt.TokenID, TxHash: receipt.TxHash, Genesis: record.Genesis}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// RetryFailedMints sweeps failed charges carrying a retryable mint error
// and drives them through Mint again. Scheduled via the cron scheduler;
// also invocable from an operator endpoint.
func RetryFailedMints(ctx context.Context) {
	gdb := db.GetDb()
	var charges []models.Charge
	err := gdb.
		Where("status = ?", types.CHARGE_FAILED).
		Where("token_id IS NULL").
		Where("mint_error IS NOT NULL").
		Where("mint_error NOT LIKE ?", notRegisteredPrefix+"%").
		Where("retry_count < ?", config.MintMaxRetries()).
		Find(&charges).
		Error
	if err != nil {
		log.Printf("[MintRetry] error listing retryable charges: %s\n", err.Error())
		return
	}
	if len(charges) == 0 {
		return
	}
	log.Printf("[MintRetry] retrying %d charge(s)\n", len(charges))
	for _, charge := range charges {
		if _, err := Mint(ctx, charge.ID); err != nil {
			if strings.HasPrefix(err.Error(), ErrNotEligible.Error()) {
				continue
			}
			log.Printf("[MintRetry] charge %s still failing: %s\n", charge.ID, err.Error())
		}
	}
}
