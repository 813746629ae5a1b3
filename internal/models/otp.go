package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposePasswordReset OTPPurpose = "password-reset"
)

func ParseOTPPurpose(s string) (OTPPurpose, bool) {
	switch p := OTPPurpose(s); p {
	case OTPPurposeRegistration, OTPPurposeLogin, OTPPurposePasswordReset:
		return p, true
	}
	return "", false
}

// OTPRecord is a pending one-time passcode for an (email, purpose) pair.
// Only a bcrypt hash of the code is stored.
type OTPRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	CodeHash  string             `bson:"otpHash" json:"-"`
	Role      Role               `bson:"role" json:"role"`
	Purpose   OTPPurpose         `bson:"purpose" json:"purpose"`
	Verified  bool               `bson:"verified" json:"verified"`
	Attempts  int                `bson:"attempts" json:"attempts"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
