package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionRegister          = "register"
	ActionVerifyEmail       = "verify_email"
	ActionLoginAttempt      = "login_attempt"
	ActionLoginOTPVerify    = "login_otp_verify"
	ActionAdminLogin        = "admin_login"
	ActionResendOTP         = "resend_otp"
	ActionLogout            = "logout"
	ActionForgotPassword    = "forgot_password"
	ActionResetPassword     = "reset_password"
	ActionChangePassword    = "change_password"
	ActionSessionRevoke     = "session_revoke"
	ActionAccountDelete     = "account_delete"
	ActionProfileUpdate     = "profile_update"
	ActionSuspendAccount    = "suspend_account"
	ActionReactivateAccount = "reactivate_account"
	ActionSetVerification   = "set_verification_status"
)

// AuthLog is an append-only record of an authentication event.
type AuthLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActorID   primitive.ObjectID `bson:"actorId,omitempty" json:"actorId,omitempty"`
	UserType  string             `bson:"userType,omitempty" json:"userType,omitempty"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Action    string             `bson:"action" json:"action"`
	Success   bool               `bson:"success" json:"success"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
	IPAddress string             `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// AdminActionLog records a moderation action. AdminID and TargetID are weak
// references: the referenced accounts may no longer exist.
type AdminActionLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AdminID    primitive.ObjectID `bson:"adminId" json:"adminId"`
	Action     string             `bson:"action" json:"action"`
	TargetID   primitive.ObjectID `bson:"targetId" json:"targetId"`
	TargetType string             `bson:"targetType" json:"targetType"`
	Reason     string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Success    bool               `bson:"success" json:"success"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

type AuditStat struct {
	Action  string `bson:"action" json:"action"`
	Success bool   `bson:"success" json:"success"`
	Count   int64  `bson:"count" json:"count"`
}
