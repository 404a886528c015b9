// Package whatsapp delivers outbound WhatsApp messages, either for real
// through the Twilio REST API or in a log-only simulation mode.
package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sender delivers one message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, phone, body string) (providerMsgID string, err error)
}

// SimulatedSender logs the message and always succeeds. Used in dev and in
// environments without Twilio credentials.
type SimulatedSender struct {
	log zerolog.Logger
}

func NewSimulatedSender(log zerolog.Logger) *SimulatedSender {
	return &SimulatedSender{log: log.With().Str("component", "whatsapp-simulated").Logger()}
}

func (s *SimulatedSender) Send(_ context.Context, phone, body string) (string, error) {
	msgID := fmt.Sprintf("wamid.mock_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	s.log.Info().
		Str("to", phone).
		Str("provider_msg_id", msgID).
		Str("preview", truncate(body, 50)).
		Msg("simulated whatsapp send")
	return msgID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// NormalizeNumber turns a raw phone string into the whatsapp:+E164 form the
// API expects. Ten-digit numbers get the Mexican mobile prefix, matching the
// clinic's patient base.
func NormalizeNumber(phone string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)

	if strings.HasPrefix(cleaned, "whatsapp:") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "+") {
		return "whatsapp:" + cleaned
	}
	if len(cleaned) == 10 {
		cleaned = "+521" + cleaned
	}
	return "whatsapp:" + cleaned
}
