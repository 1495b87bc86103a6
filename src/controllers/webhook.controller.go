package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"mintix/src/config"
	"mintix/src/db"
	"mintix/src/lib"
	"mintix/src/models"
	"mintix/src/types"
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// VerifyWebhookSignature checks the HMAC-SHA256 hex digest of the raw body
// in constant time. Gateway-agnostic on purpose: every supported provider
// signs the raw payload the same way.
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Per-process fallback ledger, bounded to the most recent 1000 event ids.
// Only consulted when redis is unreachable; dedup then degrades to
// per-instance and a log line says so.
const seenEventsLimit = 1000

var seenEventsMu sync.Mutex
var seenEventsSet = map[string]struct{}{}
var seenEventsOrder []string

func markEventSeenLocal(eventId string) bool {
	seenEventsMu.Lock()
	defer seenEventsMu.Unlock()
	if _, ok := seenEventsSet[eventId]; ok {
		return false
	}
	if len(seenEventsOrder) >= seenEventsLimit {
		oldest := seenEventsOrder[0]
		seenEventsOrder = seenEventsOrder[1:]
		delete(seenEventsSet, oldest)
	}
	seenEventsSet[eventId] = struct{}{}
	seenEventsOrder = append(seenEventsOrder, eventId)
	return true
}

func resetSeenEvents() {
	seenEventsMu.Lock()
	defer seenEventsMu.Unlock()
	seenEventsSet = map[string]struct{}{}
	seenEventsOrder = nil
}

// markEventSeen reports whether this is the first delivery of eventId.
func markEventSeen(ctx context.Context, eventId string) bool {
	rd := lib.GetRedisClient()
	if rd != nil {
		first, err := rd.SetNX(ctx, "webhook:event:"+eventId, "1", config.WebhookDedupTTL()).Result()
		if err == nil {
			return first
		}
		log.Printf("[PaymentEvent] idempotency ledger unavailable, dedup degraded to per-instance: %s\n", err.Error())
	}
	return markEventSeenLocal(eventId)
}

// HandlePaymentEvent consumes one provider delivery. The caller always acks
// at the transport level regardless of the returned kind; failures live in
// logs and on the Charge rows, never in a non-2xx that would trigger a
// provider retry storm.
func HandlePaymentEvent(ctx context.Context, payload []byte, signature string) types.WebhookResult {
	secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if secret == "" {
		log.Println("[PaymentEvent] no webhook secret configured, processing unverified event")
	} else if !VerifyWebhookSignature(payload, signature, secret) {
		log.Println("[PaymentEvent] signature mismatch, event rejected")
		return types.WEBHOOK_INVALID_SIGNATURE
	}

	eventId := gjson.GetBytes(payload, "id").String()
	eventType := gjson.GetBytes(payload, "type").String()
	if eventId == "" || eventType == "" {
		log.Println("[PaymentEvent] malformed payload: missing id or type")
		return types.WEBHOOK_PROCESSING_ERROR
	}
	if !markEventSeen(ctx, eventId) {
		log.Printf("[PaymentEvent] duplicate delivery of %s ignored\n", eventId)
		return types.WEBHOOK_DUPLICATE_EVENT
	}
	log.Printf("[PaymentEvent] %s %s\n", eventType, eventId)

	switch eventType {
	case "charge:confirmed":
		return reconcileConfirmed(ctx, payload)
	case "charge:failed":
		return reconcileFailed(payload)
	case "charge:pending":
		// No state transition until the provider settles.
		log.Printf("[PaymentEvent] %s still pending\n", eventId)
		return types.WEBHOOK_IGNORED
	default:
		log.Printf("[PaymentEvent] unhandled event type %s\n", eventType)
		return types.WEBHOOK_IGNORED
	}
}

func pendingChargesQuery(tx *gorm.DB, wallet, externalId string) *gorm.DB {
	q := tx.Model(&models.Charge{}).Where("status = ?", types.CHARGE_PENDING)
	switch {
	case wallet != "" && externalId != "":
		return q.Where("wallet_address = ? OR external_id = ?", wallet, externalId)
	case wallet != "":
		return q.Where("wallet_address = ?", wallet)
	default:
		return q.Where("external_id = ?", externalId)
	}
}

func reconcileConfirmed(ctx context.Context, payload []byte) types.WebhookResult {
	wallet := gjson.GetBytes(payload, "data.metadata.wallet").String()
	email := gjson.GetBytes(payload, "data.metadata.email").String()
	externalId := gjson.GetBytes(payload, "data.id").String()
	if wallet == "" && externalId == "" {
		log.Println("[PaymentEvent] confirmed event carries neither wallet nor charge reference")
		return types.WEBHOOK_PROCESSING_ERROR
	}

	gdb := db.GetDb()
	var user models.User
	if email != "" {
		if err := gdb.
			Where(&models.User{Email: email}).
			Attrs(&models.User{WalletAddress: &wallet}).
			FirstOrCreate(&user).
			Error; err != nil {
			log.Printf("[PaymentEvent] could not resolve purchaser [%s]: %s\n", email, err.Error())
			return types.WEBHOOK_PROCESSING_ERROR
		}
		if wallet != "" && (user.WalletAddress == nil || *user.WalletAddress != wallet) {
			if err := gdb.Model(&user).Update("wallet_address", wallet).Error; err != nil {
				log.Printf("[PaymentEvent] could not update wallet for user %d: %s\n", user.ID, err.Error())
			}
		}
	}

	var charges []models.Charge
	if err := pendingChargesQuery(gdb, wallet, externalId).Find(&charges).Error; err != nil {
		log.Printf("[PaymentEvent] error locating pending charges: %s\n", err.Error())
		return types.WEBHOOK_PROCESSING_ERROR
	}
	if len(charges) == 0 {
		log.Printf("[PaymentEvent] no pending charges for wallet=%s external=%s\n", wallet, externalId)
		return types.WEBHOOK_IGNORED
	}

	// Each charge is settled independently: a failure on one must not
	// abort its siblings, so there is one transaction per charge and the
	// error lands on that charge row.
	failures := 0
	for _, charge := range charges {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			updates := map[string]any{"status": types.CHARGE_CONFIRMED}
			if user.ID != 0 {
				updates["user_id"] = user.ID
			}
			if wallet != "" && charge.WalletAddress == nil {
				updates["wallet_address"] = wallet
			}
			if err := tx.Model(&models.Charge{}).Where("id = ?", charge.ID).Updates(updates).Error; err != nil {
				return err
			}
			if user.ID != 0 {
				if err := tx.Model(&models.Ticket{}).Where("id = ?", charge.TicketID).Update("user_id", user.ID).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			failures++
			log.Printf("[PaymentEvent] error confirming charge %s: %s\n", charge.ID, err.Error())
			if uerr := gdb.Model(&models.Charge{}).Where("id = ?", charge.ID).Updates(map[string]any{
				"mint_error":  err.Error(),
				"retry_count": gorm.Expr("retry_count + 1"),
			}).Error; uerr != nil {
				log.Printf("[PaymentEvent] could not record error on charge %s: %s\n", charge.ID, uerr.Error())
			}
			continue
		}
		// Confirmed charges are mint-eligible; drive the mint now. Its
		// outcome is durable on the charge row either way.
		if _, err := Mint(ctx, charge.ID); err != nil {
			log.Printf("[PaymentEvent] mint for charge %s did not complete: %s\n", charge.ID, err.Error())
		}
	}
	if failures == len(charges) {
		return types.WEBHOOK_PROCESSING_ERROR
	}
	return types.WEBHOOK_PROCESSED
}

func reconcileFailed(payload []byte) types.WebhookResult {
	wallet := gjson.GetBytes(payload, "data.metadata.wallet").String()
	externalId := gjson.GetBytes(payload, "data.id").String()
	if wallet == "" && externalId == "" {
		return types.WEBHOOK_PROCESSING_ERROR
	}
	gdb := db.GetDb()
	var charges []models.Charge
	if err := pendingChargesQuery(gdb, wallet, externalId).Find(&charges).Error; err != nil {
		log.Printf("[PaymentEvent] error locating pending charges: %s\n", err.Error())
		return types.WEBHOOK_PROCESSING_ERROR
	}
	for _, charge := range charges {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Charge{}).Where("id = ?", charge.ID).Update("status", types.CHARGE_FAILED).Error; err != nil {
				return err
			}
			// The seat ordinal is wasted, never reallocated.
			return tx.Model(&models.Ticket{}).Where("id = ?", charge.TicketID).Update("status", types.TICKET_CANCELED).Error
		})
		if err != nil {
			log.Printf("[PaymentEvent] error failing charge %s: %s\n", charge.ID, err.Error())
		}
	}
	return types.WEBHOOK_PROCESSED
}
