// internal/domain/models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionStatus is the verification state of a collection record.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionVerified TransactionStatus = "verified"
	TransactionRejected TransactionStatus = "rejected"
)

// PaymentMode is how a collection was received.
type PaymentMode string

const (
	PaymentCash         PaymentMode = "CASH"
	PaymentUPI          PaymentMode = "UPI"
	PaymentCheque       PaymentMode = "CHEQUE"
	PaymentOnline       PaymentMode = "ONLINE"
	PaymentBankTransfer PaymentMode = "BANK_TRANSFER"
)

// ParsePaymentMode reports whether s names a supported payment mode.
func ParsePaymentMode(s string) (PaymentMode, bool) {
	switch m := PaymentMode(s); m {
	case PaymentCash, PaymentUPI, PaymentCheque, PaymentOnline, PaymentBankTransfer:
		return m, true
	}
	return "", false
}

// DonorMeta is optional information about who paid.
type DonorMeta struct {
	Name  string `bson:"name,omitempty" json:"name,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Note  string `bson:"note,omitempty" json:"note,omitempty"`
}

// Transaction is a collection record submitted by a coordinator or volunteer.
// It is mutated exactly once by verify or reject.
type Transaction struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Reference   string              `bson:"reference" json:"reference"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Amount      float64             `bson:"amount" json:"amount"`
	PaymentMode PaymentMode         `bson:"payment_mode" json:"payment_mode"`
	Status      TransactionStatus   `bson:"status" json:"status"`
	TargetID    *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"`
	Donor       DonorMeta           `bson:"donor,omitempty" json:"donor,omitempty"`

	VerifiedBy      *primitive.ObjectID `bson:"verified_by,omitempty" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time          `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	CollectedAt time.Time `bson:"collected_at" json:"collected_at"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
