package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// TokenIDEventEncoding is the fixed token id layout shared with the minting
// service: eventID = tokenID / TokenIDEventEncoding. The metadata route
// derives the event from a token id without a chain lookup, so changing this
// breaks every already-minted token.
const TokenIDEventEncoding uint64 = 1_000_000

// GENESIS_RARITY_MULTIPLIER overrides the tier multiplier for the first
// token minted for an event.
const GENESIS_RARITY_MULTIPLIER = "10"

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	atoi, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return atoi
}

// ReserveMaxAttempts bounds the allocate+insert retry loop on seat ordinal
// collisions. Empirical default carried over from production traffic.
func ReserveMaxAttempts() int {
	return envInt("RESERVE_MAX_ATTEMPTS", 3)
}

// ReserveRetryBackoff is the linear per-attempt backoff base.
func ReserveRetryBackoff() time.Duration {
	return time.Duration(envInt("RESERVE_RETRY_BACKOFF_MS", 100)) * time.Millisecond
}

// WebhookDedupTTL is how long a provider event id stays in the idempotency
// ledger.
func WebhookDedupTTL() time.Duration {
	return time.Duration(envInt("WEBHOOK_DEDUP_TTL_MINUTES", 24*60)) * time.Minute
}

func MintRetryInterval() time.Duration {
	return time.Duration(envInt("MINT_RETRY_INTERVAL_MINUTES", 10)) * time.Minute
}

func MintMaxRetries() int {
	return envInt("MINT_MAX_RETRIES", 5)
}
