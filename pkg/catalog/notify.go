package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Severity is the urgency of a user notification.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityDestructive Severity = "destructive"
)

// Notification sent for every failed catalog request.
const (
	FailureMessage   = "Uh oh! Something went wrong. There was a problem with your request."
	RetryActionLabel = "Try again"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_notifications_total",
	Help: "User notifications emitted by severity",
}, []string{"severity"})

// Notifier surfaces a message to the user. Implementations must not block;
// the caller neither waits for nor inspects the outcome.
type Notifier interface {
	Notify(message string, severity Severity, actionLabel string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, severity Severity, actionLabel string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, severity Severity, actionLabel string) {
	f(message, severity, actionLabel)
}

// LogNotifier writes notifications to a zerolog logger. Useful for services
// without a user-facing surface.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(message string, severity Severity, actionLabel string) {
	event := n.logger.Info()
	if severity == SeverityDestructive {
		event = n.logger.Warn()
	}
	event.
		Str("severity", string(severity)).
		Str("action", actionLabel).
		Msg(message)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, Severity, string) {}
