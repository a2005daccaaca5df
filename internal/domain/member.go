package domain

import "time"

// Member representa una identidad pre-aprovisionada en el sistema.
// El registro existe antes de que la persona active su cuenta: el flujo
// de activación solo muta PasswordHash, IsRegistered y el par OTP.
type Member struct {
	ID           string     `json:"id"`
	UniqueID     string     `json:"unique_id"`
	FullName     string     `json:"full_name,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsRegistered bool       `json:"is_registered"`
	OTPCode      string     `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasLiveOTP indica si el registro tiene un código emitido (expirado o no).
// Invariante: OTPCode != "" ⟺ OTPExpiresAt != nil.
func (m Member) HasLiveOTP() bool {
	return m.OTPCode != "" && m.OTPExpiresAt != nil
}
