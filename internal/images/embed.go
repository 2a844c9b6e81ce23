// Package images converts remote product images into embedded data URIs so
// exported lists stay renderable after the source listing disappears.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const (
	// maxDownloadBytes caps how much image data is read.
	maxDownloadBytes = 8 << 20
	// maxEmbedWidth is the width images are downscaled to before embedding.
	maxEmbedWidth = 1024
)

// Embedder downloads and embeds images. Best-effort by contract: callers
// keep the remote URL when embedding fails.
type Embedder struct {
	client   *http.Client
	maxWidth int
}

// NewEmbedder creates an Embedder with default limits.
func NewEmbedder() *Embedder {
	return &Embedder{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxWidth: maxEmbedWidth,
	}
}

// Embed downloads the image at rawURL and returns it as a data URI.
// Oversized images are downscaled and re-encoded as JPEG. Inputs that are
// already data URIs, or empty, are returned unchanged.
func (e *Embedder) Embed(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" || strings.HasPrefix(rawURL, "data:") {
		return rawURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("not an image: %s", mtype.String())
	}

	mime := mtype.String()
	if resized, ok := e.downscale(data); ok {
		data = resized
		mime = "image/jpeg"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// downscale re-encodes images wider than the embed limit. Returns ok=false
// when the image is small enough or cannot be decoded; the caller embeds
// the original bytes then.
func (e *Embedder) downscale(data []byte) ([]byte, bool) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	if img.Bounds().Dx() <= e.maxWidth {
		return nil, false
	}

	resized := imaging.Resize(img, e.maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
