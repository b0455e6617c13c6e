package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomKeyHasDatePrefixAndExt(t *testing.T) {
	key := randomKey(".png")

	assert.True(t, strings.HasPrefix(key, "uploads/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other := randomKey(".png")
	assert.NotEqual(t, key, other)
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "explicit public base url",
			cfg:  Config{PublicBaseURL: "https://cdn.specialsearch.app/", Bucket: "b"},
			want: "https://cdn.specialsearch.app/uploads/x.png",
		},
		{
			name: "minio style base endpoint",
			cfg:  Config{BaseEndpoint: "http://127.0.0.1:9000/", Bucket: "uploads-bucket"},
			want: "http://127.0.0.1:9000/uploads-bucket/uploads/x.png",
		},
		{
			name: "plain aws",
			cfg:  Config{Bucket: "my-bucket", Region: "us-east-1"},
			want: "https://my-bucket.s3.us-east-1.amazonaws.com/uploads/x.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Uploader{cfg: tt.cfg}
			assert.Equal(t, tt.want, u.publicURL("uploads/x.png"))
		})
	}
}
