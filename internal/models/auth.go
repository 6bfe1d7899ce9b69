package models

type GenerateOTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyOTPRequest struct {
	Phone      string `json:"phone"`
	OTP        string `json:"otp"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

// Login represents the credentials submitted for password login.
type Login struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Token   string     `json:"token"`
	User    PublicUser `json:"user"`
}
