package mailer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nki-one/quoteintake/internal/attachment"
)

func TestBuildMessageComposesParsableMIME(t *testing.T) {
	msg := Message{
		From:    "no-reply@example.com",
		ReplyTo: "kim@customer.example",
		To:      "sales@example.com",
		Subject: "Quote request - Acme",
		Text:    "Name: Kim",
		HTML:    "<p>Name: Kim</p>",
		Attachments: []attachment.Attachment{
			{Filename: "spec.pdf", ContentType: "application/pdf", Data: []byte("pdf-bytes")},
			{Filename: "site.png", ContentType: "image/png", Data: []byte("png-bytes")},
		},
	}

	var buf bytes.Buffer
	_, err := buildMessage(msg, "<abc@example.com>").WriteTo(&buf)
	require.NoError(t, err)

	reader, err := mail.CreateReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	subject, err := reader.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Quote request - Acme", subject)

	var textBody, htmlBody string
	attachments := map[string][]byte{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ := header.ContentType()
			body, err := io.ReadAll(part.Body)
			require.NoError(t, err)
			if strings.HasPrefix(mediaType, "text/html") {
				htmlBody = string(body)
			} else {
				textBody = string(body)
			}
		case *mail.AttachmentHeader:
			filename, err := header.Filename()
			require.NoError(t, err)
			body, err := io.ReadAll(part.Body)
			require.NoError(t, err)
			attachments[filename] = body
		}
	}

	assert.Equal(t, "Name: Kim", textBody)
	assert.Equal(t, "<p>Name: Kim</p>", htmlBody)
	require.Len(t, attachments, 2)
	assert.Equal(t, []byte("pdf-bytes"), attachments["spec.pdf"])
	assert.Equal(t, []byte("png-bytes"), attachments["site.png"])
}

func TestDryRunFabricatesMessageID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := NewDryRun("example.com", logger)
	transport.spoolDir = t.TempDir()

	receipt, err := transport.Send(context.Background(), Message{
		From:    "no-reply@example.com",
		To:      "sales@example.com",
		Subject: "Quote request - Acme",
		Text:    "Name: Kim",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.MessageID, "<"))
	assert.True(t, strings.HasSuffix(receipt.MessageID, "@example.com>"))

	// The spooled copy is the preview for local setups.
	require.True(t, strings.HasPrefix(receipt.Preview, "file://"))
	spooled, err := os.ReadFile(strings.TrimPrefix(receipt.Preview, "file://"))
	require.NoError(t, err)
	assert.Contains(t, string(spooled), "Quote request - Acme")
}

func TestDryRunSurvivesSpoolFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := NewDryRun("example.com", logger)
	transport.spoolDir = filepath.Join(t.TempDir(), "missing")

	receipt, err := transport.Send(context.Background(), Message{To: "sales@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.MessageID)
	assert.Empty(t, receipt.Preview)
}
