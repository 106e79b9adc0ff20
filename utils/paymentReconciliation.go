package utils

import (
	"lms/database"
	"lms/models"
	"lms/paystack"
	"lms/services"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
)

// InitializePaymentReconciler sets up the scheduler that sweeps payment
// attempts stuck in INITIALIZED. A customer can pay and then close the tab
// before the callback, and a webhook can be lost; the sweep re-verifies
// those references against the gateway so the purchase still lands.
func InitializePaymentReconciler(gateway *paystack.Client) {
	log.Println("[RECONCILER] Initializing payment reconciliation scheduler...")

	c := cron.New()

	c.AddFunc("*/30 * * * *", func() {
		ReconcileStalePayments(gateway)
	})

	c.Start()
	log.Println("[RECONCILER] Payment reconciliation scheduler started - runs every 30 minutes")
}

// ReconcileStalePayments re-verifies INITIALIZED transactions older than an
// hour. Settlement goes through the same idempotent enrollment as the
// webhook and verify paths, so sweeping a reference that already settled
// is harmless.
func ReconcileStalePayments(gateway *paystack.Client) {
	db := database.Database.Db
	cutoff := time.Now().Add(-1 * time.Hour)

	var stale []models.PaymentTransaction
	if err := db.
		Where("status = ? AND is_deleted = false AND created_at < ?", models.PaymentInitialized, cutoff).
		Limit(100).
		Find(&stale).Error; err != nil {
		log.Printf("[RECONCILER] Error fetching stale payments: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}
	log.Printf("[RECONCILER] Found %d stale payment attempts", len(stale))

	for _, txn := range stale {
		result, err := gateway.Verify(txn.Reference)
		if err != nil {
			// Gateway unreachable or still unknown; leave for the next sweep.
			log.Printf("[RECONCILER] Verify failed for %s: %v", txn.Reference, err)
			continue
		}

		switch result.Status {
		case "success":
			_, created, err := services.EnrollUser(db, txn.UserID, txn.CourseID)
			if err != nil {
				log.Printf("[RECONCILER] Enrollment failed for %s: %v", txn.Reference, err)
				continue
			}
			now := time.Now()
			db.Model(&txn).Updates(map[string]interface{}{
				"status":           models.PaymentSuccess,
				"channel":          models.ChannelReconciler,
				"paid_at":          &now,
				"gateway_response": datatypes.JSON(result.Raw),
			})
			if created {
				log.Printf("[RECONCILER] Recovered payment %s, user %d enrolled in course %d",
					txn.Reference, txn.UserID, txn.CourseID)
			}
		case "failed", "abandoned":
			db.Model(&txn).Update("status", models.PaymentFailed)
		default:
			// Still pending on the gateway side.
		}
	}
}
