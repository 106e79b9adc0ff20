package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus defines the state of a payment attempt
type PaymentStatus string

const (
	PaymentInitialized PaymentStatus = "INITIALIZED"
	PaymentSuccess     PaymentStatus = "SUCCESS"
	PaymentFailed      PaymentStatus = "FAILED"
)

// PaymentChannel records which path confirmed the payment
type PaymentChannel string

const (
	ChannelWebhook    PaymentChannel = "WEBHOOK"
	ChannelVerify     PaymentChannel = "VERIFY"
	ChannelReconciler PaymentChannel = "RECONCILER"
)

// PaymentTransaction persists one payment attempt per reference so the
// initialize -> webhook/verify flow leaves an auditable trail. The webhook
// and the client-side verify both resolve the same row.
type PaymentTransaction struct {
	gorm.Model
	Reference   string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference"` // course_{courseID}_{userID}_{nanos}
	UserID      uint           `gorm:"not null;index" json:"userId"`
	CourseID    uint           `gorm:"not null;index" json:"courseId"`
	Email       string         `gorm:"type:varchar(255)" json:"email"`
	Amount      float64        `gorm:"not null" json:"amount"`      // major units as submitted
	AmountMinor int64          `gorm:"not null" json:"amountMinor"` // what the gateway was charged
	Currency    string         `gorm:"type:varchar(10)" json:"currency"`
	Status      PaymentStatus  `gorm:"type:varchar(20);default:'INITIALIZED';index" json:"status"`
	Channel     PaymentChannel `gorm:"type:varchar(20)" json:"channel"` // WEBHOOK, VERIFY, RECONCILER

	GatewayResponse datatypes.JSON `gorm:"type:jsonb" json:"gatewayResponse"` // raw gateway payload for audit
	PaidAt          *time.Time     `json:"paidAt"`
	IsDeleted       bool           `gorm:"default:false" json:"isDeleted"`

	User   User   `gorm:"foreignKey:UserID" json:"-"`
	Course Course `gorm:"foreignKey:CourseID" json:"-"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
