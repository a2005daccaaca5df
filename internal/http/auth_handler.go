package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"activation-api/internal/email"
	"activation-api/internal/service"
)

// EmailSettings es la vista de configuración de correo que el handler expone
// en los diagnósticos de operador (send-otp fallido y test-email).
type EmailSettings struct {
	BrevoAPIKeySet bool
	SMTPHost       string
	MailFrom       string
	MailFromName   string
}

// AuthHandler mantiene dependencias para los endpoints de activación y login.
type AuthHandler struct {
	logger     *zap.Logger
	regServ    *service.RegistrationService
	jwtServ    *service.JWTService
	sender     email.Sender
	emailCfg   EmailSettings
	production bool
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, regServ *service.RegistrationService, jwtServ *service.JWTService, sender email.Sender, emailCfg EmailSettings, production bool) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		regServ:    regServ,
		jwtServ:    jwtServ,
		sender:     sender,
		emailCfg:   emailCfg,
		production: production,
	}
}

// CheckUser maneja POST /check-user.
func (h *AuthHandler) CheckUser(c *gin.Context) {
	var req struct {
		UniqueID string `json:"uniqueId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid check-user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "uniqueId is required"})
		return
	}

	member, err := h.regServ.CheckUser(c.Request.Context(), req.UniqueID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			body := gin.H{"message": "User not found"}
			if !h.production {
				body["debug"] = gin.H{"searchedUniqueId": req.UniqueID}
			}
			c.JSON(http.StatusNotFound, body)
		case errors.Is(err, service.ErrAlreadyRegistered):
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already registered"})
		default:
			h.serverError(c, "check user failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User found", "email": member.Email})
}

// SendOTP maneja POST /send-otp.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		UniqueID string `json:"uniqueId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send-otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "uniqueId is required"})
		return
	}

	member, err := h.regServ.SendOTP(c.Request.Context(), req.UniqueID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		case errors.Is(err, service.ErrMissingEmail):
			c.JSON(http.StatusBadRequest, gin.H{"message": "User email not found"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many OTP requests"})
		case errors.Is(err, service.ErrEmailNotConfigured), errors.Is(err, service.ErrEmailSendFailure):
			body := gin.H{"message": "Failed to send OTP"}
			if !h.production {
				body["debug"] = h.emailConfigStatus()
				if errors.Is(err, service.ErrEmailNotConfigured) {
					body["hint"] = "Set BREVO_API_KEY or SMTP_HOST, plus MAIL_FROM"
				} else {
					body["hint"] = "Check server logs for the provider error"
				}
			}
			c.JSON(http.StatusInternalServerError, body)
		default:
			h.serverError(c, "send otp failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully", "email": member.Email})
}

// VerifyOTP maneja POST /verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		UniqueID string `json:"uniqueId" binding:"required"`
		OTP      string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify-otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "uniqueId and otp are required"})
		return
	}

	_, err := h.regServ.VerifyOTP(c.Request.Context(), req.UniqueID, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid OTP"})
		case errors.Is(err, service.ErrOTPExpired):
			c.JSON(http.StatusBadRequest, gin.H{"message": "OTP expired"})
		default:
			h.serverError(c, "verify otp failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully"})
}

// SetPassword maneja POST /set-password.
func (h *AuthHandler) SetPassword(c *gin.Context) {
	var req struct {
		UniqueID string `json:"uniqueId" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set-password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "uniqueId and password are required"})
		return
	}

	_, err := h.regServ.SetPassword(c.Request.Context(), req.UniqueID, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		h.serverError(c, "set password failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password created successfully, registration complete"})
}

// Login maneja POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		UniqueID string `json:"uniqueId" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "uniqueId and password are required"})
		return
	}

	member, err := h.regServ.Login(c.Request.Context(), req.UniqueID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid password"})
		default:
			h.serverError(c, "login failed", err)
		}
		return
	}

	if h.jwtServ == nil {
		h.serverError(c, "jwt not configured", errors.New("jwt service missing"))
		return
	}
	token, err := h.jwtServ.IssueToken(member)
	if err != nil {
		h.serverError(c, "jwt issue failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"uniqueId": member.UniqueID,
			"fullName": member.FullName,
		},
	})
}

// TestEmail maneja GET /test-email: valida la configuración del proveedor y
// manda un correo de prueba al remitente configurado.
func (h *AuthHandler) TestEmail(c *gin.Context) {
	status := h.emailConfigStatus()

	if !h.emailCfg.BrevoAPIKeySet && h.emailCfg.SMTPHost == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Email configuration incomplete",
			"config":  status,
			"error":   "BREVO_API_KEY or SMTP_HOST is required",
		})
		return
	}
	if h.emailCfg.MailFrom == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Email configuration incomplete",
			"config":  status,
			"error":   "MAIL_FROM is required",
		})
		return
	}
	if !strings.Contains(h.emailCfg.MailFrom, "@") {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Email configuration invalid",
			"config":  status,
			"error":   "MAIL_FROM must be an email address, not a name",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	err := h.sender.Send(ctx, h.emailCfg.MailFrom, "Email Configuration Test", "<p>Your email integration works!</p>")
	if err != nil {
		h.logger.Warn("test email failed", zap.Error(err))
		body := gin.H{"message": "Email test failed", "config": status}
		if !h.production {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email configuration valid",
		"config":  status,
		"status":  "ready",
	})
}

func (h *AuthHandler) emailConfigStatus() gin.H {
	return gin.H{
		"BREVO_API_KEY":      setOrMissing(h.emailCfg.BrevoAPIKeySet),
		"SMTP_HOST":          valueOrMissing(h.emailCfg.SMTPHost),
		"MAIL_FROM":          valueOrMissing(h.emailCfg.MailFrom),
		"MAIL_FROM_IS_EMAIL": strings.Contains(h.emailCfg.MailFrom, "@"),
		"MAIL_FROM_NAME":     valueOrMissing(h.emailCfg.MailFromName),
	}
}

func (h *AuthHandler) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	body := gin.H{"message": "Server error"}
	if !h.production {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func setOrMissing(set bool) string {
	if set {
		return "set"
	}
	return "missing"
}

func valueOrMissing(v string) string {
	if strings.TrimSpace(v) == "" {
		return "missing"
	}
	return v
}
