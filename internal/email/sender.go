package email

import (
	"context"
	"errors"
)

// ErrNotConfigured indica que no hay proveedor de correo configurado.
// El flujo lo traduce a un error de configuración para el operador, nunca
// a un reintento del cliente.
var ErrNotConfigured = errors.New("email sender not configured")

// Sender define la interfaz para envío de correos transaccionales.
// Las implementaciones nunca entran en pánico hacia el llamador: toda falla
// de transporte, autenticación o validación se devuelve como error.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlBody string) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender devuelve un Sender que siempre falla con el motivo dado.
// Se usa cuando ni Brevo ni SMTP están configurados.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return ErrNotConfigured
	}
	return errors.Join(ErrNotConfigured, errors.New(s.reason))
}
