package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("no-reply@insurex.test", "alice@x.com", "InsureX - Password Reset Request", "hello")
	require.NoError(t, err)

	assert.Equal(t, []string{"InsureX - Password Reset Request"}, msg.GetGenHeader(gomail.HeaderSubject))
	to := msg.GetToString()
	require.Len(t, to, 1)
	assert.Contains(t, to[0], "alice@x.com")

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello")
}

func TestBuildMessage_RejectsBadAddresses(t *testing.T) {
	_, err := buildMessage("not an address", "alice@x.com", "s", "b")
	assert.Error(t, err)

	_, err = buildMessage("no-reply@insurex.test", "", "s", "b")
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(zerolog.New(&buf))

	require.NoError(t, sender.Send(context.Background(), "alice@x.com", "subject", "link: http://x/reset-password?token=abc"))

	out := buf.String()
	assert.True(t, strings.Contains(out, `"to":"alice@x.com"`), out)
	assert.Contains(t, out, "token=abc")
}

func TestLogSender_RecordsDispatchDuration(t *testing.T) {
	sender := NewLogSender(zerolog.Nop())

	require.NoError(t, sender.Send(context.Background(), "alice@x.com", "subject", "body"))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(dispatchDuration, "auth_mail_dispatch_duration_seconds"), 1)
}
