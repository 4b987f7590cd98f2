package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	sent []Message
}

func (c *captureTransport) Name() string { return "capture" }

func (c *captureTransport) Send(_ context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestSenderBuildsVerificationLinks(t *testing.T) {
	tr := &captureTransport{}
	s := NewSender(tr, "https://apartmentng.com/", 24*time.Hour)

	require.NoError(t, s.SendVerification(context.Background(), "ada@example.com", "Ada", "tok123"))
	require.NoError(t, s.SendEmailChange(context.Background(), "new@example.com", "Ada", "tok456"))
	require.Len(t, tr.sent, 2)

	v := tr.sent[0]
	require.Equal(t, "ada@example.com", v.To)
	require.Contains(t, v.Text, "https://apartmentng.com/agent/verify-email/tok123")
	require.Contains(t, v.HTML, "https://apartmentng.com/agent/verify-email/tok123")
	require.Contains(t, v.Text, "24 hours")

	c := tr.sent[1]
	require.Equal(t, "new@example.com", c.To)
	require.Contains(t, c.Text, "/agent/verify-new-email/tok456")
}

func TestSenderEscapesNamesInHTML(t *testing.T) {
	tr := &captureTransport{}
	s := NewSender(tr, "http://localhost:5173", 24*time.Hour)
	require.NoError(t, s.SendVerification(context.Background(), "x@example.com", "<script>x</script>", "t"))
	require.NotContains(t, tr.sent[0].HTML, "<script>")
	require.Contains(t, tr.sent[0].Text, "<script>x</script>")
}

func TestComposeMIMEIsMultipartAlternative(t *testing.T) {
	raw, err := composeMIME("no-reply@apartmentng.com", "ApartmentNG", Message{
		To:      "ada@example.com",
		ToName:  "Ada",
		Subject: "Verify Your Email - ApartmentNG",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	}, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out := string(raw)
	require.Contains(t, out, "multipart/alternative")
	require.Contains(t, out, "plain body")
	require.Contains(t, out, "<p>html body</p>")
	require.Contains(t, out, "Subject: Verify Your Email - ApartmentNG")
	require.True(t, strings.Contains(out, "To: \"Ada\" <ada@example.com>") || strings.Contains(out, "To: Ada <ada@example.com>"), out)
}
