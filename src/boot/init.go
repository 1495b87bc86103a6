package boot

import (
	"context"
	"log"
	"mintix/src/config"
	"mintix/src/controllers"
	"mintix/src/db"
	"mintix/src/lib"
	"mintix/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.TicketTier{},
		&models.Ticket{},
		&models.Charge{},
		&models.ChainRegistry{},
		&models.MintRecord{},
		&models.PerkRedemption{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler registers the periodic mint-retry sweep. Everything else
// in the system is request-driven.
func InitScheduler() {
	id, err := lib.CreateCronJob(func() {
		controllers.RetryFailedMints(context.Background())
	}, config.MintRetryInterval())
	if err != nil {
		log.Printf("Error scheduling mint retry job: %s\n", err.Error())
		return
	}
	log.Printf("Mint retry job scheduled: %s\n", *id)
}
