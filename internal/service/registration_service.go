package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"activation-api/internal/domain"
	"activation-api/internal/email"
	"activation-api/internal/repository"
)

// RegistrationService coordina el flujo de activación de cuentas:
// check-user, send-otp, verify-otp, set-password y login. La verificación
// del OTP es de solo lectura y set-password solo exige que el registro
// exista; el orden de pasos lo garantiza el flujo del cliente.
type RegistrationService struct {
	logger      *zap.Logger
	members     repository.MemberRepository
	emailSender email.Sender
	otpLimiter  OTPRateLimiter
}

func NewRegistrationService(logger *zap.Logger, members repository.MemberRepository, emailSender email.Sender, otpLimiter OTPRateLimiter) *RegistrationService {
	return &RegistrationService{
		logger:      logger,
		members:     members,
		emailSender: emailSender,
		otpLimiter:  otpLimiter,
	}
}

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrAlreadyRegistered  = errors.New("member already registered")
	ErrOTPInvalid         = errors.New("otp invalid")
	ErrOTPExpired         = errors.New("otp expired")
	ErrMissingEmail       = errors.New("member email missing")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrEmailNotConfigured = errors.New("email provider not configured")
	ErrRateLimited        = errors.New("rate limited")
)

const (
	otpTTL          = 5 * time.Minute
	otpLength       = 6
	notifierTimeout = 10 * time.Second

	otpSubject = "OTP Verification"
)

// CheckUser valida que el miembro exista y aún no esté activado, y devuelve
// el registro para que el cliente confirme el destino del correo.
func (s *RegistrationService) CheckUser(ctx context.Context, uniqueID string) (domain.Member, error) {
	member, err := s.getByUniqueID(ctx, uniqueID)
	if err != nil {
		return domain.Member{}, err
	}
	if member.IsRegistered {
		return domain.Member{}, ErrAlreadyRegistered
	}
	return member, nil
}

// SendOTP emite un código de 6 dígitos con vigencia de 5 minutos, lo persiste
// y lo envía por correo. Si el envío falla el código queda persistido: un
// reintento de send-otp lo sobrescribe con uno nuevo.
func (s *RegistrationService) SendOTP(ctx context.Context, uniqueID string) (domain.Member, error) {
	member, err := s.getByUniqueID(ctx, uniqueID)
	if err != nil {
		return domain.Member{}, err
	}

	if strings.TrimSpace(member.Email) == "" {
		return domain.Member{}, ErrMissingEmail
	}

	if s.otpLimiter != nil && !s.otpLimiter.Allow(member.UniqueID) {
		return domain.Member{}, ErrRateLimited
	}

	code, err := generateOTP()
	if err != nil {
		return domain.Member{}, err
	}
	expiresAt := time.Now().UTC().Add(otpTTL)

	if err := s.members.UpdateOTP(ctx, member.ID, code, expiresAt); err != nil {
		return domain.Member{}, mapNoRows(err)
	}

	if s.emailSender == nil {
		return domain.Member{}, ErrEmailNotConfigured
	}

	sendCtx, cancel := context.WithTimeout(ctx, notifierTimeout)
	defer cancel()

	body := fmt.Sprintf("<p>Your OTP is <b>%s</b>. It expires in 5 minutes.</p>", code)
	if err := s.emailSender.Send(sendCtx, member.Email, otpSubject, body); err != nil {
		if s.logger != nil {
			s.logger.Warn("send otp email failed",
				zap.Error(err),
				zap.String("unique_id", member.UniqueID),
				zap.String("email", member.Email),
			)
		}
		if errors.Is(err, email.ErrNotConfigured) {
			return domain.Member{}, ErrEmailNotConfigured
		}
		return domain.Member{}, ErrEmailSendFailure
	}

	member.OTPCode = code
	member.OTPExpiresAt = &expiresAt
	return member, nil
}

// VerifyOTP compara el código enviado contra el último emitido. Es de solo
// lectura: no retira el código, eso ocurre únicamente en SetPassword.
func (s *RegistrationService) VerifyOTP(ctx context.Context, uniqueID, code string) (domain.Member, error) {
	member, err := s.getByUniqueID(ctx, uniqueID)
	if err != nil {
		return domain.Member{}, err
	}

	// Comparación exacta, sin normalizar: un código con relleno no es el código.
	if !isValidOTPCode(code) {
		return domain.Member{}, ErrOTPInvalid
	}
	if member.OTPCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(member.OTPCode)) != 1 {
		return domain.Member{}, ErrOTPInvalid
	}
	if member.OTPExpiresAt == nil || time.Now().UTC().After(*member.OTPExpiresAt) {
		return domain.Member{}, ErrOTPExpired
	}

	return member, nil
}

// SetPassword fija la contraseña y completa la activación: persiste el hash,
// marca is_registered y retira el OTP en una sola escritura.
func (s *RegistrationService) SetPassword(ctx context.Context, uniqueID, password string) (domain.Member, error) {
	member, err := s.getByUniqueID(ctx, uniqueID)
	if err != nil {
		return domain.Member{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Member{}, err
	}

	if err := s.members.SetPassword(ctx, member.ID, string(hashBytes)); err != nil {
		return domain.Member{}, mapNoRows(err)
	}

	member.PasswordHash = string(hashBytes)
	member.IsRegistered = true
	member.OTPCode = ""
	member.OTPExpiresAt = nil
	return member, nil
}

// Login autentica identificador + contraseña. No toca el estado del OTP.
func (s *RegistrationService) Login(ctx context.Context, uniqueID, password string) (domain.Member, error) {
	member, err := s.getByUniqueID(ctx, uniqueID)
	if err != nil {
		return domain.Member{}, err
	}
	if member.PasswordHash == "" {
		return domain.Member{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return domain.Member{}, ErrInvalidCredentials
	}
	return member, nil
}

func (s *RegistrationService) getByUniqueID(ctx context.Context, uniqueID string) (domain.Member, error) {
	if s.members == nil {
		return domain.Member{}, errors.New("registration service not configured")
	}
	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		return domain.Member{}, ErrMemberNotFound
	}
	member, err := s.members.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return domain.Member{}, mapNoRows(err)
	}
	return member, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMemberNotFound
	}
	return err
}

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

func isValidOTPCode(code string) bool {
	if len(code) != otpLength {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// OTPRateLimiter limita la frecuencia de solicitudes de OTP por identidad.
type OTPRateLimiter interface {
	Allow(key string) bool
}

type otpRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewOTPRateLimiter crea un rate limiter en memoria.
func NewOTPRateLimiter(window time.Duration, max int) OTPRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &otpRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *otpRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
