package models

import "time"

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpwd"`
	Role     string `json:"role" validate:"required,oneof=doctor patient"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`

	Specialization  string  `json:"specialization,omitempty" validate:"required_if=Role doctor,max=100"`
	LicenseNumber   string  `json:"licenseNumber,omitempty" validate:"required_if=Role doctor,max=50"`
	ExperienceYears int     `json:"experienceYears,omitempty" validate:"min=0,max=80"`
	ConsultationFee float64 `json:"consultationFee,omitempty" validate:"min=0"`

	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      string     `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Address     string     `json:"address,omitempty" validate:"max=300"`
}

// Login represents the credentials submitted for doctor and patient login.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=doctor patient"`
}

type AdminLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTP     string `json:"otp" validate:"required,len=6,numeric"`
	Role    string `json:"role" validate:"required,oneof=doctor patient"`
	Purpose string `json:"purpose" validate:"required,oneof=registration login"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Role    string `json:"role" validate:"required,oneof=doctor patient"`
	Purpose string `json:"purpose" validate:"required,oneof=registration login password-reset"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=doctor patient"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required,strongpwd"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=doctor patient"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpwd"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type SuspendRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type VerificationRequest struct {
	Status string `json:"status" validate:"required,oneof=pending verified approved rejected"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}
