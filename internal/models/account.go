package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Roles lists every account role, in the order email uniqueness is checked.
var Roles = []Role{RoleDoctor, RolePatient, RoleAdmin}

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleDoctor:
		return RoleDoctor, true
	case RolePatient:
		return RolePatient, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Collection is the Mongo collection holding accounts of this role.
func (r Role) Collection() string {
	return string(r) + "s"
}

// UserType is the capitalised form stored on sessions and audit entries.
func (r Role) UserType() string {
	switch r {
	case RoleDoctor:
		return "Doctor"
	case RolePatient:
		return "Patient"
	case RoleAdmin:
		return "Admin"
	}
	return ""
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

func ParseVerificationStatus(s string) (VerificationStatus, bool) {
	switch v := VerificationStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case VerificationPending, VerificationVerified, VerificationApproved, VerificationRejected:
		return v, true
	}
	return "", false
}

// Account is a doctor, patient or admin record. All three roles share this
// shape; role specific profile fields are left empty for the other roles.
type Account struct {
	ID    primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Role  Role               `json:"role" bson:"-"`
	Name  string             `json:"name" bson:"name"`
	Email string             `json:"email" bson:"email"`

	PasswordHash string `json:"-" bson:"password"`

	IsEmailVerified    bool               `json:"isEmailVerified" bson:"isEmailVerified"`
	EmailVerifiedAt    *time.Time         `json:"emailVerifiedAt,omitempty" bson:"emailVerifiedAt,omitempty"`
	IsActive           bool               `json:"isActive" bson:"isActive"`
	VerificationStatus VerificationStatus `json:"verificationStatus" bson:"verificationStatus"`
	VerifiedBy         primitive.ObjectID `json:"verifiedBy,omitempty" bson:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time         `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`

	SuspendedBy      primitive.ObjectID `json:"suspendedBy,omitempty" bson:"suspendedBy,omitempty"`
	SuspendedAt      *time.Time         `json:"suspendedAt,omitempty" bson:"suspendedAt,omitempty"`
	SuspensionReason string             `json:"suspensionReason,omitempty" bson:"suspensionReason,omitempty"`

	PasswordResetCount   int        `json:"-" bson:"passwordResetCount"`
	PasswordResetUsedAt  *time.Time `json:"-" bson:"passwordResetUsedAt,omitempty"`
	PasswordChangedAt    *time.Time `json:"-" bson:"passwordChangedAt,omitempty"`
	ResetPasswordToken   string     `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time `json:"-" bson:"resetPasswordExpires,omitempty"`

	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`

	// doctor
	Specialization  string  `json:"specialization,omitempty" bson:"specialization,omitempty"`
	LicenseNumber   string  `json:"licenseNumber,omitempty" bson:"licenseNumber,omitempty"`
	ExperienceYears int     `json:"experienceYears,omitempty" bson:"experienceYears,omitempty"`
	ConsultationFee float64 `json:"consultationFee,omitempty" bson:"consultationFee,omitempty"`

	// patient
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender      string     `json:"gender,omitempty" bson:"gender,omitempty"`
	Address     string     `json:"address,omitempty" bson:"address,omitempty"`

	// admin
	Permissions []string `json:"permissions,omitempty" bson:"permissions,omitempty"`

	LastLogin  *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	LastLogout *time.Time `json:"lastLogout,omitempty" bson:"lastLogout,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil pointers are left untouched.
type ProfileUpdate struct {
	Name            *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone           *string    `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Specialization  *string    `json:"specialization,omitempty" validate:"omitempty,max=100"`
	ExperienceYears *int       `json:"experienceYears,omitempty" validate:"omitempty,min=0,max=80"`
	ConsultationFee *float64   `json:"consultationFee,omitempty" validate:"omitempty,min=0"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Gender          *string    `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Address         *string    `json:"address,omitempty" validate:"omitempty,max=300"`
}
