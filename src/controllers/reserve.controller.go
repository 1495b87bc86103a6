package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"mintix/src/config"
	"mintix/src/db"
	"mintix/src/lib"
	"mintix/src/models"
	"mintix/src/types"
	"mintix/src/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTierNotFound   = errors.New("ticket tier not found")
	ErrEventNotOnSale = errors.New("event is not on sale")
	ErrSoldOut        = errors.New("tier is sold out")
	ErrHighDemand     = errors.New("could not reserve a seat due to high demand, try again shortly")
	ErrGatewayFailed  = errors.New("payment gateway rejected the charge")
	ErrBadQuantity    = errors.New("quantity must be 1")
)

type ReserveResult struct {
	TicketID  uuid.UUID `json:"ticket_id"`
	ChargeID  uuid.UUID `json:"charge_id"`
	HostedURL string    `json:"hosted_url,omitempty"`
	Status    string    `json:"status"`
}

// The allocate+insert loop is an explicit state machine so the retry policy
// can be tested without a database. Outcomes are classified first; the
// policy function never inspects a store-specific error.
type insertOutcome int

const (
	insertOK insertOutcome = iota
	insertConflict
	insertFatal
)

type retryAction int

const (
	actionSucceeded retryAction = iota
	actionRetry
	actionExhausted
	actionAbort
)

func classifyInsertErr(err error) insertOutcome {
	if err == nil {
		return insertOK
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return insertConflict
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint") {
		return insertConflict
	}
	return insertFatal
}

// nextAction decides what the orchestrator does after an insert attempt.
// attempt is 1-based.
func nextAction(attempt, maxAttempts int, outcome insertOutcome) retryAction {
	switch outcome {
	case insertOK:
		return actionSucceeded
	case insertConflict:
		if attempt >= maxAttempts {
			return actionExhausted
		}
		return actionRetry
	default:
		return actionAbort
	}
}

// allocateSeat picks the next seat ordinal for a tier inside the caller's
// transaction. Capacity counts issued tickets (reserved and minted);
// canceled and compensated tickets are excluded from the count but their
// ordinals are never handed out again, so the max scan runs unscoped.
func allocateSeat(tx *gorm.DB, tier *models.TicketTier) (uint, utils.SeatDescriptor, error) {
	if tier.Capacity != nil {
		var count int64
		if err := tx.
			Model(&models.Ticket{}).
			Where("event_id = ? AND tier_id = ?", tier.EventID, tier.ID).
			Where("status <> ?", types.TICKET_CANCELED).
			Count(&count).
			Error; err != nil {
			return 0, utils.SeatDescriptor{}, err
		}
		if count >= int64(*tier.Capacity) {
			return 0, utils.SeatDescriptor{}, ErrSoldOut
		}
	}
	var maxOrdinal uint
	if err := tx.
		Unscoped().
		Model(&models.Ticket{}).
		Where("event_id = ? AND tier_id = ?", tier.EventID, tier.ID).
		Select("COALESCE(MAX(ordinal), 0)").
		Scan(&maxOrdinal).
		Error; err != nil {
		return 0, utils.SeatDescriptor{}, err
	}
	ordinal := maxOrdinal + 1
	return ordinal, utils.DeriveSeat(tier.Name, tier.SeatsPerRow, ordinal), nil
}

// insertTicket is indirected so tests can inject ordinal collisions.
var insertTicket = func(tx *gorm.DB, ticket *models.Ticket) error {
	return tx.Create(ticket).Error
}

// Reserve allocates a seat and creates the Ticket(reserved)+Charge(pending)
// pair. The wallet path does it in one transaction. The card path first
// reserves the ticket, then creates the external charge, and compensates by
// deleting the ticket when the gateway or the charge insert fails: the
// gateway and the database cannot share a transaction.
func Reserve(ctx context.Context, body *types.ReserveRequestBody) (*ReserveResult, error) {
	if body.Quantity != 1 {
		return nil, ErrBadQuantity
	}
	gdb := db.GetDb()
	var event models.Event
	if err := gdb.First(&event, "id = ?", body.EventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	// Draft and closed events never sell, no matter what tiers they carry.
	if event.Status != types.EVENT_OPEN {
		return nil, ErrEventNotOnSale
	}
	var tier models.TicketTier
	if err := gdb.
		Where(&models.TicketTier{EventID: body.EventID, Name: body.TierName}).
		First(&tier).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	if !tier.Active {
		return nil, ErrTierNotFound
	}

	card := body.PaymentMethod == types.PAYMENT_METHOD_CARD

	maxAttempts := config.ReserveMaxAttempts()
	backoff := config.ReserveRetryBackoff()
	var ticket models.Ticket
	var charge models.Charge
	for attempt := 1; ; attempt++ {
		ticket = models.Ticket{}
		charge = models.Charge{}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			ordinal, seat, err := allocateSeat(tx, &tier)
			if err != nil {
				return err
			}
			ticket = models.Ticket{
				EventID: tier.EventID,
				TierID:  tier.ID,
				Ordinal: ordinal,
				Section: seat.Section,
				Row:     seat.Row,
				Seat:    seat.Seat,
				Status:  types.TICKET_RESERVED,
			}
			if err := insertTicket(tx, &ticket); err != nil {
				return err
			}
			if card {
				// External charge happens after commit; the charge row
				// is inserted only once the gateway accepts.
				return nil
			}
			charge = models.Charge{
				TicketID:      ticket.ID,
				Status:        types.CHARGE_PENDING,
				WalletAddress: body.WalletAddress,
				Email:         body.Email,
				TierName:      tier.Name,
				Amount:        tier.PriceAmount,
				Currency:      tier.Currency,
			}
			return tx.Create(&charge).Error
		})
		if errors.Is(err, ErrSoldOut) {
			// Capacity is a hard ceiling, not a race: no retry.
			return nil, ErrSoldOut
		}
		action := nextAction(attempt, maxAttempts, classifyInsertErr(err))
		if action == actionSucceeded {
			break
		}
		switch action {
		case actionRetry:
			jitter := time.Duration(rand.Int63n(int64(backoff)))
			time.Sleep(time.Duration(attempt)*backoff + jitter)
			continue
		case actionExhausted:
			log.Printf("[Reserve] ordinal contention exhausted %d attempts for event=%d tier=%s\n", maxAttempts, body.EventID, body.TierName)
			return nil, ErrHighDemand
		default:
			log.Printf("[Reserve] failed: %s\n", err.Error())
			return nil, err
		}
	}

	if card {
		meta := map[string]string{
			"ticket_id": ticket.Identifier.String(),
			"tier_name": tier.Name,
			"email":     body.Email,
		}
		ref, err := lib.GetPaymentGateway().CreateCharge(ctx, tier.PriceAmount, tier.Currency, meta)
		if err != nil {
			compensateTicket(gdb, &ticket)
			log.Printf("[Reserve] gateway charge failed for ticket %s: %s\n", ticket.Identifier, err.Error())
			return nil, fmt.Errorf("%w: %s", ErrGatewayFailed, err.Error())
		}
		attrs := make(types.Metadata, len(meta))
		for k, v := range meta {
			attrs[k] = v
		}
		charge = models.Charge{
			TicketID:      ticket.ID,
			ExternalID:    ref.ExternalID,
			HostedURL:     ref.HostedURL,
			Status:        types.CHARGE_PENDING,
			WalletAddress: body.WalletAddress,
			Email:         body.Email,
			TierName:      tier.Name,
			Amount:        tier.PriceAmount,
			Currency:      tier.Currency,
			Metadata:      attrs,
		}
		if err := gdb.Create(&charge).Error; err != nil {
			compensateTicket(gdb, &ticket)
			log.Printf("[Reserve] could not persist charge for ticket %s: %s\n", ticket.Identifier, err.Error())
			return nil, err
		}
	}

	return &ReserveResult{
		TicketID:  ticket.Identifier,
		ChargeID:  charge.ID,
		HostedURL: charge.HostedURL,
		Status:    string(charge.Status),
	}, nil
}

// compensateTicket removes a reserved ticket whose charge never came to be.
// The row is soft-deleted: its ordinal stays burned and is never reissued.
func compensateTicket(gdb *gorm.DB, ticket *models.Ticket) {
	if err := gdb.Delete(ticket).Error; err != nil {
		log.Printf("[Reserve] compensation failed for ticket %d: %s\n", ticket.ID, err.Error())
	}
}
