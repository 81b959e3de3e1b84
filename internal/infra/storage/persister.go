package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/infra/logging"
	"storybook-platform/internal/infra/metrics"
)

var _ adapter.AssetPersister = (*Persister)(nil)

const maxAssetBytes = 20 << 20

// Persister moves generated assets into durable storage. Stores are tried
// in order; when all of them fail the bytes are inlined as a data URL. A
// failed download keeps the provider URL so an already charged page is
// never left without an asset.
type Persister struct {
	stores          []adapter.AssetStore
	client          *http.Client
	downloadTimeout time.Duration
	maxBytes        int64
	log             *zerolog.Logger
}

func NewPersister(downloadTimeout time.Duration, logger *zerolog.Logger, stores ...adapter.AssetStore) *Persister {
	if downloadTimeout <= 0 {
		downloadTimeout = 30 * time.Second
	}
	return &Persister{
		stores:          stores,
		client:          &http.Client{},
		downloadTimeout: downloadTimeout,
		maxBytes:        maxAssetBytes,
		log:             logger,
	}
}

func (p *Persister) Persist(ctx context.Context, key string, asset *adapter.Asset) (string, error) {
	if asset.Empty() {
		return "", errors.New("storage: empty asset")
	}
	log := logging.With(ctx, p.log)
	data, mimeType := asset.Data, asset.MIMEType
	if len(data) == 0 {
		var err error
		data, mimeType, err = p.download(ctx, asset.URL, mimeType)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("download failed, keeping remote url")
			return asset.URL, nil
		}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	key += extensionFor(mimeType)

	for _, s := range p.stores {
		start := time.Now()
		url, err := s.Put(ctx, key, data, mimeType)
		metrics.ObserveProviderCall("storage", s.Name(), time.Since(start).Milliseconds(), err == nil)
		if err == nil {
			return url, nil
		}
		log.Warn().Err(err).Str("store", s.Name()).Str("key", key).Msg("store put failed")
		if ctx.Err() != nil {
			break
		}
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (p *Persister) download(ctx context.Context, url, mimeType string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.downloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download %s: http %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > p.maxBytes {
		return nil, "", fmt.Errorf("download %s: larger than %d bytes", url, p.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", errors.New("download: empty body")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "application/octet-stream" {
			mimeType = mt
		}
	}
	return data, mimeType, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return ""
}
