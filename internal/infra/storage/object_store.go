package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.AssetStore = (*ObjectStore)(nil)

// ObjectStore uploads with an authenticated PUT to endpoint/key and returns
// publicBase/key. Server errors and transport failures are retried.
type ObjectStore struct {
	endpoint   string
	token      string
	publicBase string
	retries    uint
	backoff    time.Duration
	client     *http.Client
}

func NewObjectStore(endpoint, token, publicBase string, retries int, retryBackoff time.Duration) (*ObjectStore, error) {
	if endpoint == "" {
		return nil, errors.New("storage: object store url is empty")
	}
	if publicBase == "" {
		publicBase = endpoint
	}
	if retries <= 0 {
		retries = 1
	}
	return &ObjectStore{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		publicBase: strings.TrimRight(publicBase, "/"),
		retries:    uint(retries),
		backoff:    retryBackoff,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (s *ObjectStore) Name() string { return "object" }

func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	b := backoff.NewExponentialBackOff()
	if s.backoff > 0 {
		b.InitialInterval = s.backoff
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.upload(ctx, clean, data, contentType)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.retries))
	if err != nil {
		return "", err
	}
	return s.publicBase + "/" + clean, nil
}

func (s *ObjectStore) upload(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.endpoint+"/"+key, bytes.NewReader(data))
	if err != nil {
		return backoff.Permanent(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("storage: upload %s: http %d", key, resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("storage: upload %s: http %d", key, resp.StatusCode))
	}
}
