package utils

import (
	"fmt"
	"lms/config"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail sends a single HTML email through Sendgrid. Failures are logged
// and returned; callers fire these from goroutines and never block a request
// on delivery.
func SendEmail(toEmail, toName, subject, htmlBody string) error {
	if config.AppConfig.SendgridApiKey == "" {
		log.Printf("[EMAIL] Sendgrid not configured, skipping email to %s (%s)", toEmail, subject)
		return nil
	}

	from := mail.NewEmail("LMS", config.AppConfig.EmailSender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendgridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] Error sending email to %s: %v", toEmail, err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("[EMAIL] Sendgrid rejected email to %s: %d %s", toEmail, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid rejected email: %d", resp.StatusCode)
	}
	return nil
}

// SendEnrollmentConfirmation notifies a student of a new enrollment.
func SendEnrollmentConfirmation(email, name, courseTitle string) {
	body := fmt.Sprintf(`
	<h2>Welcome aboard, %s!</h2>
	<p>You are now enrolled in <strong>%s</strong>.</p>
	<p>Head to your dashboard to start learning.</p>`, name, courseTitle)

	if err := SendEmail(email, name, "Enrollment confirmed: "+courseTitle, body); err != nil {
		log.Printf("[EMAIL] Failed to send enrollment confirmation: %v", err)
	}
}

// SendPaymentReceipt confirms a successful course purchase.
func SendPaymentReceipt(email, name, courseTitle, reference string, amount float64, currency string) {
	body := fmt.Sprintf(`
	<h2>Payment received</h2>
	<p>Hi %s, your payment of %.2f %s for <strong>%s</strong> was successful.</p>
	<p>Reference: %s</p>`, name, amount, currency, courseTitle, reference)

	if err := SendEmail(email, name, "Payment receipt: "+courseTitle, body); err != nil {
		log.Printf("[EMAIL] Failed to send payment receipt: %v", err)
	}
}
