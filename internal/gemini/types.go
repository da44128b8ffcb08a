package gemini

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Credentials supplies the API key for each request. Keys can change between
// calls (browser sessions select their own), so the client never caches one.
type Credentials interface {
	APIKey() string
}

// StaticKey is the fixed-key Credentials used when the key comes from the
// environment.
type StaticKey string

func (k StaticKey) APIKey() string { return string(k) }

// Blob is a decoded binary payload plus its MIME type.
type Blob struct {
	Data []byte
	Mime string
}

func (b Blob) Empty() bool { return len(b.Data) == 0 }

// DataURL renders the blob as a data: URL for embedding in JSON responses.
func (b Blob) DataURL() string {
	mime := b.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(b.Data))
}

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Prompt      string
	Reference   *Blob
	AspectRatio string
	ImageSize   string
}

// VideoRequest describes one long-running video generation submission. The
// first frame seeds the opening of the clip and the last frame pins what the
// motion must resolve into.
type VideoRequest struct {
	Prompt      string
	FirstFrame  Blob
	LastFrame   Blob
	AspectRatio string
	Resolution  string
	Count       int
}

var (
	ErrNoImage    = errors.New("gemini: response contains no inline image")
	ErrNoVideoURI = errors.New("gemini: operation completed without a video uri")
)

var dataURLRegex = regexp.MustCompile(`^data:([^;]+);base64,`)

// ParseDataURL decodes a data: URL (or a bare base64 string) into a Blob.
func ParseDataURL(value string) (Blob, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Blob{}, errors.New("empty data url")
	}

	mime := "image/png"
	if matches := dataURLRegex.FindStringSubmatch(value); len(matches) == 2 {
		mime = matches[1]
	}

	payload := stripDataURLPrefix(value)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("decode data url: %w", err)
	}
	if len(data) == 0 {
		return Blob{}, errors.New("empty data url payload")
	}

	return Blob{Data: data, Mime: mime}, nil
}

func stripDataURLPrefix(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}
