package paystack

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
)

// GatewayError is returned when Paystack is unreachable or answers with a
// non-success status. Callers surface it as a transient failure.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("paystack: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("paystack: %s", e.Message)
}

// Metadata travels with the transaction and comes back on webhook/verify.
// Paystack echoes it verbatim, so the enrollment path can trust these fields
// once the signature or the verify call has been checked.
type Metadata struct {
	CourseID   uint   `json:"course_id"`
	UserID     uint   `json:"user_id"`
	CourseName string `json:"course_name"`
}

// InitializeRequest carries everything the initialize call needs.
// Amount is in major units; conversion to the gateway's minor units
// happens exactly once, inside Initialize.
type InitializeRequest struct {
	Email       string
	Amount      float64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    Metadata
}

// InitializeResult is the authorization handed back for client-side redirect.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the settled state of a transaction as Paystack reports it.
type VerifyResult struct {
	Status   string   `json:"status"` // "success", "failed", "abandoned"
	Amount   int64    `json:"amount"` // minor units
	Metadata Metadata `json:"metadata"`
	Raw      []byte   `json:"-"`
}

// Client wraps Paystack's transaction initialize/verify endpoints.
type Client struct {
	http      *resty.Client
	secretKey string
}

// NewClient builds a client against the given base URL (the production API,
// or a test server).
func NewClient(secretKey, baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second).
			SetHeader("Content-Type", "application/json"),
		secretKey: secretKey,
	}
}

// ToMinorUnits converts a major-unit amount to the gateway's integer minor
// units. A single round avoids the fractional-cent drift that truncation
// or repeated float arithmetic would introduce (0.1+0.2 must become 30).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type initializePayload struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency,omitempty"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

type initializeEnvelope struct {
	Status  bool             `json:"status"`
	Message string           `json:"message"`
	Data    InitializeResult `json:"data"`
}

// Initialize creates a transaction on Paystack and returns the authorization
// URL the client is redirected to.
func (c *Client) Initialize(req InitializeRequest) (*InitializeResult, error) {
	payload := initializePayload{
		Email:       req.Email,
		Amount:      ToMinorUnits(req.Amount),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	resp, err := c.http.R().
		SetHeader("Authorization", "Bearer "+c.secretKey).
		SetBody(payload).
		Post("/transaction/initialize")
	if err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("initialize request failed: %v", err)}
	}
	if resp.StatusCode() != 200 {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "initialize rejected: " + resp.String()}
	}

	var envelope initializeEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("invalid initialize response: %v", err)}
	}
	if !envelope.Status {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "initialize failed: " + envelope.Message}
	}

	return &envelope.Data, nil
}

type verifyEnvelope struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	Data    VerifyResult `json:"data"`
}

// Verify fetches the settled state of a transaction by reference.
func (c *Client) Verify(reference string) (*VerifyResult, error) {
	resp, err := c.http.R().
		SetHeader("Authorization", "Bearer "+c.secretKey).
		Get("/transaction/verify/" + reference)
	if err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("verify request failed: %v", err)}
	}
	if resp.StatusCode() != 200 {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "verify rejected: " + resp.String()}
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("invalid verify response: %v", err)}
	}
	if !envelope.Status {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "verify failed: " + envelope.Message}
	}

	result := envelope.Data
	result.Raw = append([]byte(nil), resp.Body()...)
	return &result, nil
}
