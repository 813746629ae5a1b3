package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reasons recorded on a session when it is deactivated.
const (
	RevokedNewLogin    = "new_login_other_device"
	RevokedLogout      = "logout"
	RevokedByUser      = "revoked_by_user"
	RevokedOtherDevice = "logged_out_other_devices"
	RevokedExpired     = "expired"
	RevokedSuspended   = "account_suspended"
	RevokedDeleted     = "account_deleted"
	RevokedPassword    = "password_changed"
)

type DeviceInfo struct {
	Browser string `bson:"browser" json:"browser"`
	OS      string `bson:"os" json:"os"`
	Device  string `bson:"device" json:"device"`
}

type Session struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	UserType      string             `bson:"userType" json:"userType"`
	Token         string             `bson:"token" json:"-"`
	DeviceInfo    DeviceInfo         `bson:"deviceInfo" json:"deviceInfo"`
	IPAddress     string             `bson:"ipAddress" json:"ipAddress"`
	LastActivity  time.Time          `bson:"lastActivity" json:"lastActivity"`
	ExpiresAt     time.Time          `bson:"expiresAt" json:"expiresAt"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	RevokedReason string             `bson:"revokedReason,omitempty" json:"revokedReason,omitempty"`
	RevokedAt     *time.Time         `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
