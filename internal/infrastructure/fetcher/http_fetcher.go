package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/jitter"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
)

var (
	errBadStatus      = errors.New("unexpected status")
	errNotImage       = errors.New("response is not an image")
	errBodyTooLarge   = errors.New("image exceeds size limit")
	errUnsupportedURL = errors.New("only http and https urls are supported")
)

// HTTPFetcher получает байты изображения: загруженные напрямую или по URL с ограниченным числом попыток.
type HTTPFetcher struct {
	client  *http.Client
	cfg     *cfg.FetcherCfg
	backoff jitter.Strategy
	logger  logger.Logger
}

// NewHTTPFetcher создаёт собственный http.Client; ослабленная проверка TLS
// (cfg.InsecureSkipVerify) действует только на этот клиент.
func NewHTTPFetcher(cfg *cfg.FetcherCfg, logger logger.Logger) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		// принимает самоподписанные и невалидные сертификаты
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		logger.Warnf("TLS certificate verification is disabled for image fetching")
	}

	return &HTTPFetcher{
		client:  &http.Client{Transport: transport},
		cfg:     cfg,
		backoff: jitter.Fixed(cfg.Backoff, cfg.BackoffJitter),
		logger:  logger,
	}
}

// Acquire возвращает исходные байты изображения.
// Должен быть задан ровно один источник, иначе KindInvalidInput без сетевых вызовов.
func (f *HTTPFetcher) Acquire(ctx context.Context, input domain.ImageInput) ([]byte, error) {
	const op = "HTTPFetcher.Acquire"

	switch {
	case input.HasFile() && input.HasURL():
		return nil, e.NewMatchError(e.KindInvalidInput, op, errors.New("both image file and image url provided"), nil)
	case input.HasFile():
		return input.FileBytes, nil
	case input.HasURL():
		return f.fetchWithRetry(ctx, input.RemoteURL)
	default:
		return nil, e.NewMatchError(e.KindInvalidInput, op, nil, nil)
	}
}

// fetchWithRetry делает до MaxAttempts попыток с фиксированной паузой между ними.
func (f *HTTPFetcher) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "HTTPFetcher.fetchWithRetry"

	if err := validateURL(rawURL); err != nil {
		return nil, e.NewMatchError(e.KindInvalidInput, op, err, map[string]any{"url": rawURL})
	}

	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		data, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			f.logger.Debugf("image fetched successfully (attempt %d)", attempt+1)
			return data, nil
		}
		lastErr = err
		f.logger.Warnf("image fetch attempt %d/%d failed: %v", attempt+1, f.cfg.MaxAttempts, err)

		if ctx.Err() != nil {
			return nil, f.fetchFailed(op, rawURL, attempt+1, ctx.Err())
		}

		if attempt == f.cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(f.backoff(attempt)):
		case <-ctx.Done():
			return nil, f.fetchFailed(op, rawURL, attempt+1, ctx.Err())
		}
	}

	return nil, f.fetchFailed(op, rawURL, f.cfg.MaxAttempts, lastErr)
}

// fetchOnce выполняет одну попытку с собственным таймаутом.
// Успех: статус 200 или 302 и Content-Type, содержащий "image".
func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", f.cfg.Accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %d", errBadStatus, resp.StatusCode)
	}

	if contentType := resp.Header.Get("Content-Type"); !strings.Contains(contentType, "image") {
		return nil, fmt.Errorf("%w: content-type %q", errNotImage, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, f.cfg.MaxBytes)
	}

	return data, nil
}

func (f *HTTPFetcher) fetchFailed(op string, rawURL string, attempts int, cause error) error {
	return e.NewMatchError(e.KindFetchFailed, op, cause, map[string]any{
		"url":      rawURL,
		"attempts": attempts,
	})
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errUnsupportedURL
	}

	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}

	return nil
}
