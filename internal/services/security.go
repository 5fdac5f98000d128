package services

import (
	"io"
	"strings"

	"github.com/rs/zerolog"

	"oahushop/internal/logx"
)

// Security event kinds.
const (
	EventLoginSuccess = "admin_login_success"
	EventLoginFailure = "admin_login_failure"
	EventLogout       = "admin_logout"
	EventPublish      = "pipeline_publish"
	EventSettings     = "settings_changed"
	EventSpam         = "inquiry_spam_suspected"
)

// SecurityLogger appends security events to a dedicated JSON log file.
type SecurityLogger struct {
	logger zerolog.Logger
	closer io.Closer
}

// NewSecurityLogger opens path for appending. When the file cannot be opened
// events are dropped and the failure is logged once.
func NewSecurityLogger(path string) *SecurityLogger {
	logger, closer, err := logx.NewFileLogger(path)
	if err != nil {
		logx.Error().Err(err).Str("path", path).Msg("cannot open security log")
		return &SecurityLogger{logger: zerolog.Nop()}
	}
	return &SecurityLogger{logger: logger, closer: closer}
}

// NewSecurityLoggerTo writes events to w.
func NewSecurityLoggerTo(w io.Writer) *SecurityLogger {
	return &SecurityLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// LogSecurityEvent records one event.
func (sl *SecurityLogger) LogSecurityEvent(eventType, details, ipAddress string) {
	sl.logger.Info().
		Str("event", eventType).
		Str("details", details).
		Str("ip", ipAddress).
		Send()
}

func (sl *SecurityLogger) Close() error {
	if sl.closer == nil {
		return nil
	}
	return sl.closer.Close()
}

// SpamDetector flags inquiries that look like spam. The flag is advisory;
// flagged inquiries are still stored.
type SpamDetector struct {
	spamWords []string
}

func NewSpamDetector() *SpamDetector {
	return &SpamDetector{
		spamWords: []string{
			"bitcoin", "btc", "crypto", "wallet", "casino", "lottery",
			"earn money", "make money", "free money", "investment",
			"bank transfer", "western union", "credit card", "graph.org",
			"카지노", "바카라", "토토", "대출", "코인", "수익 보장",
			"고수익", "무료 상담", "당첨", "비트코인", "텔레그램",
		},
	}
}

// IsSpam reports whether message contains a known spam phrase.
func (sd *SpamDetector) IsSpam(message string) bool {
	messageLower := strings.ToLower(message)
	for _, word := range sd.spamWords {
		if strings.Contains(messageLower, word) {
			return true
		}
	}
	return false
}

// IsSpamValues checks every value of an inquiry.
func (sd *SpamDetector) IsSpamValues(values map[string]string) bool {
	for _, v := range values {
		if sd.IsSpam(v) {
			return true
		}
	}
	return false
}
