package controllers

import (
	"errors"
	"fmt"
	"mintix/src/config"
	"mintix/src/db"
	"mintix/src/models"
	"mintix/src/types"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventClosed   = errors.New("event is not open for changes")
)

func CreateEvent(body *types.CreateEventRequestBody) (*models.Event, error) {
	startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_at: %s", err.Error())
	}
	endsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.EndsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid ends_at: %s", err.Error())
	}
	if !endsAt.After(startsAt) {
		return nil, errors.New("ends_at must be after starts_at")
	}
	event := models.Event{
		Title:      body.Title,
		Slug:       slug.Make(body.Title),
		Location:   body.Location,
		StartsAt:   &startsAt,
		EndsAt:     &endsAt,
		Status:     types.EVENT_DRAFT,
		ArtworkURL: body.ArtworkURL,
	}
	if err := db.GetDb().Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func ListEvents() ([]models.Event, error) {
	var events []models.Event
	if err := db.GetDb().Preload("Tiers").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func GetEvent(id uint) (*models.Event, error) {
	var event models.Event
	if err := db.GetDb().Preload("Tiers").First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// PublishEvent moves a draft event to open. Sales only run against open
// events; the transition is one-way here, closing goes through a separate
// operator action.
func PublishEvent(id uint) (*models.Event, error) {
	event, err := GetEvent(id)
	if err != nil {
		return nil, err
	}
	if event.Status == types.EVENT_CLOSED {
		return nil, ErrEventClosed
	}
	if event.Status == types.EVENT_OPEN {
		return event, nil
	}
	if err := db.GetDb().Model(event).Update("status", types.EVENT_OPEN).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func CreateTier(eventId uint, body *types.CreateTierRequestBody) (*models.TicketTier, error) {
	event, err := GetEvent(eventId)
	if err != nil {
		return nil, err
	}
	if event.Status == types.EVENT_CLOSED {
		return nil, ErrEventClosed
	}
	tier := models.TicketTier{
		EventID:          event.ID,
		Name:             body.Name,
		Capacity:         body.Capacity,
		Active:           true,
		PriceAmount:      body.PriceAmount,
		Currency:         body.Currency,
		RarityMultiplier: body.RarityMultiplier,
		SeatsPerRow:      body.SeatsPerRow,
	}
	if tier.Currency == "" {
		tier.Currency = "usd"
	}
	if tier.RarityMultiplier.IsZero() {
		tier.RarityMultiplier = decimal.NewFromInt(1)
	}
	if tier.SeatsPerRow == 0 {
		tier.SeatsPerRow = 10
	}
	if err := db.GetDb().Create(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func ListTiers(eventId uint) ([]models.TicketTier, error) {
	if _, err := GetEvent(eventId); err != nil {
		return nil, err
	}
	var tiers []models.TicketTier
	if err := db.GetDb().Where("event_id = ?", eventId).Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// RegisterChain upserts the chain identifiers for one (event, tier) pair.
// Minting refuses tiers without a registry row, so operators run this
// before sales open.
func RegisterChain(eventId uint, body *types.RegisterChainRequestBody) (*models.ChainRegistry, error) {
	if _, err := GetEvent(eventId); err != nil {
		return nil, err
	}
	var tier models.TicketTier
	if err := db.GetDb().First(&tier, "id = ? AND event_id = ?", body.TierID, eventId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	registry := models.ChainRegistry{
		EventID:      eventId,
		TierID:       tier.ID,
		ChainEventID: body.ChainEventID,
		ChainTierID:  body.ChainTierID,
		Contract:     body.Contract,
	}
	err := db.GetDb().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "tier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chain_event_id", "chain_tier_id", "contract"}),
	}).Create(&registry).Error
	if err != nil {
		return nil, err
	}
	return &registry, nil
}

func ListRegistry(eventId uint) ([]models.ChainRegistry, error) {
	if _, err := GetEvent(eventId); err != nil {
		return nil, err
	}
	var rows []models.ChainRegistry
	if err := db.GetDb().Where("event_id = ?", eventId).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
