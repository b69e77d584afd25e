package mail

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"campus/internal/domain/service"
)

type recordingSender struct {
	messages []*gomail.Message
	err      error
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, m...)

	return nil
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMessage() service.MailMessage {
	return service.MailMessage{
		Email:     "alice@x.io",
		Token:     "abc123",
		FirstName: "Alice",
		LastName:  "Liddell",
		Origin:    "https://campus.example/",
	}
}

func writeMessage(t *testing.T, m *gomail.Message) string {
	t.Helper()

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	return buf.String()
}

func TestSMTPMailer_SendVerificationEmail(t *testing.T) {
	sender := &recordingSender{}
	mailer := newSMTPMailer("no-reply@campus.example", sender, time.Second, newDiscardLogger())

	require.NoError(t, mailer.SendVerificationEmail(context.Background(), testMessage()))
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"Email Verification"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"alice@x.io"}, msg.GetHeader("To"))
	assert.Contains(t, writeMessage(t, msg), "Hello Alice Liddell")
}

func TestSMTPMailer_SendPasswordResetEmail(t *testing.T) {
	sender := &recordingSender{}
	mailer := newSMTPMailer("no-reply@campus.example", sender, time.Second, newDiscardLogger())

	require.NoError(t, mailer.SendPasswordResetEmail(context.Background(), testMessage()))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"Reset Your Password"}, sender.messages[0].GetHeader("Subject"))
}

func TestSMTPMailer_Failures(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	mailer := newSMTPMailer("no-reply@campus.example", sender, time.Second, newDiscardLogger())

	assert.Error(t, mailer.SendVerificationEmail(context.Background(), testMessage()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, newSMTPMailer("x", &recordingSender{}, time.Second, newDiscardLogger()).SendPasswordResetEmail(ctx, testMessage()))
}

// stalledSender never finishes until released, like a relay that accepted the connection and went quiet.
type stalledSender struct {
	release chan struct{}
}

func (s *stalledSender) DialAndSend(...*gomail.Message) error {
	<-s.release

	return nil
}

func TestSMTPMailer_StalledRelayIsBounded(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		ctx     func() (context.Context, context.CancelFunc)
	}{
		{
			name:    "send timeout",
			timeout: 20 * time.Millisecond,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithCancel(context.Background())
			},
		},
		{
			name:    "caller deadline",
			timeout: time.Minute,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &stalledSender{release: make(chan struct{})}
			defer close(sender.release)

			mailer := newSMTPMailer("no-reply@campus.example", sender, tt.timeout, newDiscardLogger())
			ctx, cancel := tt.ctx()
			defer cancel()

			start := time.Now()
			err := mailer.SendPasswordResetEmail(ctx, testMessage())

			require.Error(t, err)
			assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestActionLink(t *testing.T) {
	link := actionLink("https://campus.example/", verificationPath, service.MailMessage{Email: "a+b@x.io", Token: "t0k"})

	assert.Equal(t, "https://campus.example/authentication/verify-email?email=a%2Bb%40x.io&token=t0k", link)
}

func TestRender_EscapesName(t *testing.T) {
	body, err := render(passwordResetTemplate, passwordResetPath, service.MailMessage{
		Email:     "x@x.io",
		Token:     "t",
		FirstName: "<script>",
		Origin:    "https://campus.example",
	})
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "https://campus.example/authentication/resetpassword?email=x%40x.io")
	assert.Contains(t, body, "token=t")
}
