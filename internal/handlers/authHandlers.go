package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/middlewares"
	"supplierhub/internal/models"
	"supplierhub/internal/services"
	"supplierhub/internal/utils"
)

// maxBodyBytes caps JSON request bodies; every auth payload is a few fields.
const maxBodyBytes = 64 << 10

// decodeBody reads a size-capped JSON body into v, answering 413 or 400 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.SendJSONError(w, "Request body too large", http.StatusRequestEntityTooLarge, "")
			return false
		}
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Invalid request body")
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest, "")
		return false
	}
	return true
}

type AuthHandler struct {
	otpService      services.OTPService
	sessionService  services.SessionService
	passwordService services.PasswordService
	supplierService services.SupplierService
	// development echoes generated codes and error detail in responses.
	development bool
}

func NewAuthHandler(otpService services.OTPService, sessionService services.SessionService,
	passwordService services.PasswordService, supplierService services.SupplierService, development bool) *AuthHandler {
	return &AuthHandler{
		otpService:      otpService,
		sessionService:  sessionService,
		passwordService: passwordService,
		supplierService: supplierService,
		development:     development,
	}
}

type generateOTPResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	OTP       string    `json:"otp,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type verifyTokenResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	User    *models.PublicUser `json:"user,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *AuthHandler) GenerateOTP(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := a.otpService.RequestCode(r.Context(), req.Phone)
	if err != nil {
		utils.SendAppError(w, err, a.development)
		return
	}

	resp := generateOTPResponse{
		Success:   true,
		Message:   "OTP sent successfully",
		ExpiresAt: result.ExpiresAt,
	}
	if a.development {
		resp.OTP = result.Code
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (a *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := a.otpService.VerifyCode(r.Context(), req.Phone, req.OTP, req.DeviceInfo)
	if err != nil {
		utils.SendAppError(w, err, a.development)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User,
	})
}

// VerifyToken reports the token's state in the body; it answers 200 even
// when the token is rejected.
func (a *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	user, _, err := a.sessionService.Authenticate(r.Context(), utils.BearerToken(r))
	if err != nil {
		if apperrors.Status(err) >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("Token verification failed")
		}
		utils.RespondWithJSON(w, http.StatusOK, verifyTokenResponse{Success: false, Message: apperrors.Message(err)})
		return
	}

	pu := a.supplierService.PublicUser(r.Context(), user)
	utils.RespondWithJSON(w, http.StatusOK, verifyTokenResponse{Success: true, Message: "Token is valid", User: &pu})
}

// Logout always succeeds from the client's point of view.
func (a *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessionService.Logout(r.Context(), utils.BearerToken(r)); err != nil {
		log.Warn().Err(err).Msg("Logout did not complete cleanly")
	}
	utils.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (a *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Login
	if !decodeBody(w, r, &creds) {
		return
	}

	result, err := a.passwordService.Login(r.Context(), creds.Phone, creds.Password)
	if err != nil {
		utils.SendAppError(w, err, a.development)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User,
	})
}

func (a *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.GetUser(r.Context())
	if !ok {
		utils.SendAppError(w, apperrors.ErrUnauthenticated, a.development)
		return
	}

	var req models.SetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.passwordService.SetPassword(r.Context(), user.ID, req.Password); err != nil {
		utils.SendAppError(w, err, a.development)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password updated successfully"})
}

func (a *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.GetUser(r.Context())
	if !ok {
		utils.SendAppError(w, apperrors.ErrUnauthenticated, a.development)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    a.supplierService.PublicUser(r.Context(), user),
	})
}
