package controllers

import (
	"context"
	"fmt"
	"log"
	"mintix/src/config"
	"mintix/src/db"
	"mintix/src/lib"
	"mintix/src/models"
	"mintix/src/types"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database per test. A single connection
// serializes transactions, which keeps the concurrency tests deterministic
// while still exercising the real allocation path.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening test database", err)
	}
	inner, err := d.DB()
	if err != nil {
		log.Fatalf("Error accessing inner db instance: %s\n", err.Error())
	}
	inner.SetMaxOpenConns(1)

	if err := d.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.TicketTier{},
		&models.Ticket{},
		&models.Charge{},
		&models.ChainRegistry{},
		&models.MintRecord{},
		&models.PerkRedemption{},
	); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	db.NewDB(d)
	t.Cleanup(func() {
		db.NewDB(nil)
		inner.Close()
	})
	return d
}

func seedEventWithTier(t *testing.T, d *gorm.DB, capacity *uint) (*models.Event, *models.TicketTier) {
	t.Helper()
	starts := time.Now().Add(24 * time.Hour)
	ends := starts.Add(4 * time.Hour)
	event := models.Event{
		Title:    "Sample Fest",
		Slug:     "sample-fest-" + uuid.NewString(),
		StartsAt: &starts,
		EndsAt:   &ends,
		Status:   types.EVENT_OPEN,
	}
	if err := d.Create(&event).Error; err != nil {
		t.Fatalf("error seeding event: %s", err.Error())
	}
	tier := models.TicketTier{
		EventID:          event.ID,
		Name:             "General Admission",
		Capacity:         capacity,
		Active:           true,
		PriceAmount:      decimal.NewFromInt(50),
		Currency:         "usd",
		RarityMultiplier: decimal.NewFromInt(1),
		SeatsPerRow:      10,
	}
	if err := d.Create(&tier).Error; err != nil {
		t.Fatalf("error seeding tier: %s", err.Error())
	}
	return &event, &tier
}

func seedRegistry(t *testing.T, d *gorm.DB, event *models.Event, tier *models.TicketTier) *models.ChainRegistry {
	t.Helper()
	registry := models.ChainRegistry{
		EventID:      event.ID,
		TierID:       tier.ID,
		ChainEventID: uint64(event.ID),
		ChainTierID:  uint64(tier.ID),
		Contract:     "0xc0ffee",
	}
	if err := d.Create(&registry).Error; err != nil {
		t.Fatalf("error seeding registry: %s", err.Error())
	}
	return &registry
}

// stubChain fabricates token ids with the same layout the real minter
// uses: chain event id in the high digits, seat ordinal in the low ones.
type stubChain struct {
	mu          sync.Mutex
	simulateErr error
	submitErr   error
	waitErr     error
	state       types.ChainTicketState
	stateErr    error
	submits     int
	lastArgs    lib.MintArgs
}

func (c *stubChain) Simulate(ctx context.Context, args *lib.MintArgs) error {
	return c.simulateErr
}

func (c *stubChain) Submit(ctx context.Context, args *lib.MintArgs) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.submits++
	c.lastArgs = *args
	return fmt.Sprintf("0x%d%d", args.ChainEventID, args.Ordinal), nil
}

func (c *stubChain) WaitForConfirmation(ctx context.Context, txHash string) (*lib.MintReceipt, error) {
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &lib.MintReceipt{
		TokenID:  c.lastArgs.ChainEventID*config.TokenIDEventEncoding + uint64(c.lastArgs.Ordinal),
		TxHash:   txHash,
		Contract: c.lastArgs.Contract,
	}, nil
}

func (c *stubChain) ReadTicketState(ctx context.Context, tokenId uint64) (types.ChainTicketState, error) {
	if c.stateErr != nil {
		return types.CHAIN_TICKET_ACTIVE, c.stateErr
	}
	return c.state, nil
}

func installStubChain(t *testing.T, c lib.ChainClient) {
	t.Helper()
	lib.NewChainClient(c)
	t.Cleanup(func() { lib.NewChainClient(nil) })
}

type stubGateway struct {
	ref   *lib.ChargeRef
	err   error
	calls int
}

func (g *stubGateway) CreateCharge(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*lib.ChargeRef, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.ref, nil
}

func installStubGateway(t *testing.T, g lib.PaymentGateway) {
	t.Helper()
	lib.NewPaymentGateway(g)
	t.Cleanup(func() { lib.NewPaymentGateway(nil) })
}
