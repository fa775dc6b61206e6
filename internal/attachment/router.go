package attachment

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Input is one attachment descriptor as submitted by the form. Exactly one
// of DataURL and URL is expected; anything else is skipped.
type Input struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Type    string `json:"type"`
	DataURL string `json:"dataUrl,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Attachment is a mail-ready inline attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Uploader stores a decoded payload under a key and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// maxPerSubmission caps how many attachments a single submission may carry;
// excess entries are dropped without error.
const maxPerSubmission = 5

// Router applies the per-attachment policy: upload to object storage when an
// uploader is configured, inline-attach otherwise, link already-hosted files.
// A failure on one attachment never aborts the others or the submission.
type Router struct {
	uploader Uploader // nil when no object storage is configured
	maxBytes int64    // per-file cap for inline mail attachments; 0 disables
	logger   *slog.Logger
}

func NewRouter(uploader Uploader, maxBytes int64, logger *slog.Logger) *Router {
	return &Router{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// Route evaluates the first maxPerSubmission inputs in order and returns the
// attachments to embed in the outgoing mail plus an HTML fragment of links
// for externally stored files.
func (r *Router) Route(ctx context.Context, inputs []Input) ([]Attachment, string) {
	if len(inputs) > maxPerSubmission {
		inputs = inputs[:maxPerSubmission]
	}

	var attached []Attachment
	var links strings.Builder
	for _, input := range inputs {
		switch {
		case input.DataURL != "" && r.uploader != nil:
			mimeType, data, err := DecodeDataURL(input.DataURL)
			if err != nil {
				r.logger.Warn("skipping undecodable attachment", "name", input.Name, "error", err)
				continue
			}
			key := uploadKey(input.Name)
			url, err := r.uploader.Upload(ctx, key, data, mimeType)
			if err != nil {
				r.logger.Warn("attachment upload failed", "name", input.Name, "key", key, "error", err)
				continue
			}
			writeLink(&links, url, displayName(input.Name, url))

		case input.DataURL != "":
			mimeType, data, err := DecodeDataURL(input.DataURL)
			if err != nil {
				r.logger.Warn("skipping undecodable attachment", "name", input.Name, "error", err)
				continue
			}
			if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
				r.logger.Warn("skipping oversized inline attachment", "name", input.Name, "size", len(data), "max", r.maxBytes)
				continue
			}
			name := input.Name
			if name == "" {
				name = "attachment"
			}
			attached = append(attached, Attachment{Filename: name, ContentType: mimeType, Data: data})

		case input.URL != "":
			writeLink(&links, input.URL, displayName(input.Name, input.URL))
		}
	}
	return attached, links.String()
}

// uploadKey builds a collision-resistant object key from the current time, a
// random suffix and the original name, so concurrent uploads need no
// coordination.
func uploadKey(name string) string {
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("uploads/%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], name)
}

func displayName(name, url string) string {
	if name != "" {
		return name
	}
	return url
}

func writeLink(b *strings.Builder, url, label string) {
	fmt.Fprintf(b, `<p><a href="%s" target="_blank">Attachment: %s</a></p>`,
		html.EscapeString(url), html.EscapeString(label))
}
