package catalog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogNotifier(zerolog.New(&buf))

	notifier.Notify(FailureMessage, SeverityDestructive, RetryActionLabel)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, FailureMessage, entry["message"])
	assert.Equal(t, "destructive", entry["severity"])
	assert.Equal(t, "Try again", entry["action"])

	buf.Reset()
	notifier.Notify("Catalog updated", SeverityInfo, "")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
}

func TestNotifierFunc(t *testing.T) {
	var got []string
	var n Notifier = NotifierFunc(func(message string, severity Severity, actionLabel string) {
		got = append(got, message, string(severity), actionLabel)
	})

	n.Notify("m", SeverityInfo, "a")
	assert.Equal(t, []string{"m", "info", "a"}, got)

	NopNotifier{}.Notify("ignored", SeverityInfo, "")
}
