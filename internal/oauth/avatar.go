package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
)

var ErrAvatarTooLarge = errors.New("avatar exceeds size limit")

// AvatarFetcher downloads provider profile pictures.
type AvatarFetcher struct {
	client  *http.Client
	maxSize int64
}

func NewAvatarFetcher(maxSize int64) *AvatarFetcher {
	return &AvatarFetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		maxSize: maxSize,
	}
}

func (f *AvatarFetcher) Fetch(ctx context.Context, url string) (*domain.UserImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch avatar: status %d", resp.StatusCode)
	}
	blob, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if int64(len(blob)) > f.maxSize {
		return nil, ErrAvatarTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(blob)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("fetch avatar: not an image (%s)", contentType)
	}
	return &domain.UserImage{ContentType: contentType, Blob: blob}, nil
}
