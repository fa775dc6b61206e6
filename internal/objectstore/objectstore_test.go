package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAcceptsEndpointForms(t *testing.T) {
	for _, endpoint := range []string{"", "https://minio.internal:9000", "http://127.0.0.1:9000"} {
		client, err := New(Options{Bucket: "quotes", Region: "us-east-1", Endpoint: endpoint})
		require.NoError(t, err, "endpoint %q", endpoint)
		require.NotNil(t, client)
	}
}

func TestPublicURLDefaultsToVirtualHostedStyle(t *testing.T) {
	client := &Client{bucket: "quotes"}
	assert.Equal(t, "https://quotes.s3.amazonaws.com/uploads%2F1-abc-spec.pdf",
		client.publicURL("uploads/1-abc-spec.pdf"))
}

func TestPublicURLUsesTemplate(t *testing.T) {
	client := &Client{bucket: "quotes", template: "https://cdn.example.com/files/{key}"}
	assert.Equal(t, "https://cdn.example.com/files/uploads%2F1-abc-spec.pdf",
		client.publicURL("uploads/1-abc-spec.pdf"))
}
