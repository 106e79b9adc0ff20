package paymentController

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/paystack"
	"lms/services"
	"lms/utils"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gateway is the Paystack client used by the payment handlers. Set once
// from main (or from test setup).
var Gateway *paystack.Client

// newReference builds the per-attempt reference. The nanosecond tail keeps
// repeated attempts by the same user on the same course from colliding.
func newReference(courseID, userID uint) string {
	return fmt.Sprintf("course_%d_%d_%d", courseID, userID, time.Now().UnixNano())
}

// courseIsFree reports whether the stored price parses to zero.
func courseIsFree(course *models.Course) bool {
	price, err := strconv.ParseFloat(course.Price, 64)
	return err == nil && price == 0
}

// InitializePayment starts a purchase: persists an INITIALIZED transaction
// record, asks Paystack for an authorization URL and hands it back for the
// client-side redirect. Nothing is enrolled here.
func InitializePayment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	// The gateway requires a billing email.
	if user.Email == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "An email address is required for payment!", nil)
	}

	reqData, ok := c.Locals("validatedInitializePayment").(*struct {
		Amount   float64 `json:"amount"`
		CourseID uint    `json:"courseId"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var course models.Course
	if err := db.Where("id = ? AND is_deleted = ? AND status = ? AND is_published = ?",
		reqData.CourseID, false, "ACTIVE", true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not active!", nil)
	}

	// Free courses never touch the gateway.
	if reqData.Amount == 0 || courseIsFree(&course) {
		enrollment, created, err := services.EnrollUser(db, userID, course.ID)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in course!", nil)
		}
		if created {
			go utils.SendEnrollmentConfirmation(user.Email, user.Name, course.Title)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in free course!", enrollment)
	}

	reference := newReference(course.ID, userID)

	// Persist the attempt before calling out so webhook/verify/reconciler
	// always find a row for the reference.
	txn := models.PaymentTransaction{
		Reference:   reference,
		UserID:      userID,
		CourseID:    course.ID,
		Email:       user.Email,
		Amount:      reqData.Amount,
		AmountMinor: paystack.ToMinorUnits(reqData.Amount),
		Currency:    config.AppConfig.PaymentCurrency,
		Status:      models.PaymentInitialized,
	}
	if err := db.Create(&txn).Error; err != nil {
		log.Printf("[PAYMENT] Failed to record payment attempt: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start payment!", nil)
	}

	result, err := Gateway.Initialize(paystack.InitializeRequest{
		Email:       user.Email,
		Amount:      reqData.Amount,
		Currency:    config.AppConfig.PaymentCurrency,
		Reference:   reference,
		CallbackURL: fmt.Sprintf("%s/courses/%d", config.AppConfig.FrontendURL, course.ID),
		Metadata: paystack.Metadata{
			CourseID:   course.ID,
			UserID:     userID,
			CourseName: course.Title,
		},
	})
	if err != nil {
		log.Printf("[PAYMENT] Gateway initialize failed for %s: %v", reference, err)
		db.Model(&txn).Update("status", models.PaymentFailed)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment provider is unavailable, please try again!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment initialized!", fiber.Map{
		"authorizationUrl": result.AuthorizationURL,
		"accessCode":       result.AccessCode,
		"reference":        result.Reference,
	})
}

// webhookEvent is the slice of the Paystack event envelope this service
// cares about.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string            `json:"reference"`
		Amount    int64             `json:"amount"`
		Metadata  paystack.Metadata `json:"metadata"`
	} `json:"data"`
}

// validSignature recomputes the HMAC-SHA512 of the raw body and compares it
// against the x-paystack-signature header in constant time.
func validSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(config.AppConfig.PaystackSecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaystackWebhook handles provider-initiated charge notifications. Paystack
// retries delivery, so the enrollment underneath must be (and is) idempotent.
func PaystackWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if !validSignature(body, c.Get("x-paystack-signature")) {
		log.Printf("[PAYMENT] Webhook rejected: bad signature from %s", c.IP())
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid signature!", nil)
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payload!", nil)
	}

	if event.Event != "charge.success" {
		// Acknowledge everything else so the provider stops retrying.
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored.", nil)
	}

	if event.Data.Metadata.UserID == 0 || event.Data.Metadata.CourseID == 0 {
		log.Printf("[PAYMENT] Webhook charge.success without metadata, reference %s", event.Data.Reference)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored.", nil)
	}

	if err := settlePayment(database.Database.Db, event.Data.Reference,
		event.Data.Metadata.UserID, event.Data.Metadata.CourseID,
		models.ChannelWebhook, body); err != nil {
		log.Printf("[PAYMENT] Webhook settlement failed for %s: %v", event.Data.Reference, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed.", nil)
}

// VerifyPayment is the client-side confirmation poll. It races the webhook
// for the same reference; both paths settle through the same idempotent
// enrollment.
func VerifyPayment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedVerifyPayment").(*struct {
		Reference string `json:"reference"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	result, err := Gateway.Verify(reqData.Reference)
	if err != nil {
		log.Printf("[PAYMENT] Gateway verify failed for %s: %v", reqData.Reference, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false,
			"We could not verify your payment right now. If you were charged, please contact support.", nil)
	}

	// A caller may only claim a payment made under their own user id.
	if result.Metadata.UserID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "This payment does not belong to you!", nil)
	}

	if result.Status != "success" {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment not successful.", fiber.Map{
			"success": false,
			"message": "Payment was not successful. If you believe you were charged, please contact support.",
		})
	}

	if err := settlePayment(database.Database.Db, reqData.Reference,
		userID, result.Metadata.CourseID, models.ChannelVerify, result.Raw); err != nil {
		log.Printf("[PAYMENT] Verify settlement failed for %s: %v", reqData.Reference, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to complete enrollment!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment verified!", fiber.Map{
		"success": true,
		"message": "Payment verified and enrollment completed.",
	})
}

// settlePayment enrolls the payer and marks the transaction row settled.
// Safe to call more than once per reference: the enrollment is idempotent
// and the transaction update only moves INITIALIZED rows forward.
func settlePayment(db *gorm.DB, reference string, userID, courseID uint, channel models.PaymentChannel, raw []byte) error {
	_, created, err := services.EnrollUser(db, userID, courseID)
	if err != nil {
		return err
	}

	now := time.Now()
	update := map[string]interface{}{
		"status":  models.PaymentSuccess,
		"channel": channel,
		"paid_at": &now,
	}
	if len(raw) > 0 {
		update["gateway_response"] = datatypes.JSON(raw)
	}
	if err := db.Model(&models.PaymentTransaction{}).
		Where("reference = ? AND status = ?", reference, models.PaymentInitialized).
		Updates(update).Error; err != nil {
		log.Printf("[PAYMENT] Failed to mark transaction %s settled: %v", reference, err)
	}

	if created {
		var user models.User
		var course models.Course
		var txn models.PaymentTransaction
		if db.First(&user, userID).Error == nil && db.First(&course, courseID).Error == nil {
			amount, currency := 0.0, config.AppConfig.PaymentCurrency
			if db.Where("reference = ?", reference).First(&txn).Error == nil {
				amount, currency = txn.Amount, txn.Currency
			}
			go utils.SendPaymentReceipt(user.Email, user.Name, course.Title, reference, amount, currency)
		}
	}

	return nil
}
