package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBody = []byte("\x89PNG\r\n\x1a\nfake")

func testCfg() *cfg.FetcherCfg {
	return &cfg.FetcherCfg{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		Backoff:     50 * time.Millisecond,
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		Accept:      "image/*,*/*;q=0.8",
		MaxBytes:    1 << 20,
	}
}

func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func serveImage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(pngBody)
}

func TestAcquire_FileBytesReturnedDirectly(t *testing.T) {
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	data, err := f.Acquire(context.Background(), domain.NewFileInput([]byte("bytes")))
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)
}

func TestAcquire_NoInputMakesNoNetworkCalls(t *testing.T) {
	_, hits := countingServer(t, serveImage)
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	_, err := f.Acquire(context.Background(), domain.ImageInput{})

	assert.Equal(t, e.KindInvalidInput, e.KindOf(err))
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Zero(t, hits.Load())
}

func TestAcquire_BothInputsRejected(t *testing.T) {
	srv, hits := countingServer(t, serveImage)
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	_, err := f.Acquire(context.Background(), domain.ImageInput{FileBytes: []byte("x"), RemoteURL: srv.URL})

	assert.Equal(t, e.KindInvalidInput, e.KindOf(err))
	assert.Zero(t, hits.Load())
}

func TestAcquire_UnsupportedScheme(t *testing.T) {
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	_, err := f.Acquire(context.Background(), domain.NewURLInput("ftp://example.com/a.png"))
	assert.Equal(t, e.KindInvalidInput, e.KindOf(err))
}

func TestAcquire_URLSuccessSendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		serveImage(w, r)
	})
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	data, err := f.Acquire(context.Background(), domain.NewURLInput(srv.URL+"/shoe.png"))
	require.NoError(t, err)

	assert.Equal(t, pngBody, data)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, gotUA, "Mozilla/5.0")
	assert.Contains(t, gotAccept, "image/*")
}

func TestAcquire_ServerErrorExhaustsAttempts(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := testCfg()
	f := NewHTTPFetcher(c, logger.NewNop())

	start := time.Now()
	_, err := f.Acquire(context.Background(), domain.NewURLInput(srv.URL))
	elapsed := time.Since(start)

	assert.Equal(t, e.KindFetchFailed, e.KindOf(err))
	assert.ErrorIs(t, err, errBadStatus)
	assert.Equal(t, int32(3), hits.Load())
	// пауза только между попытками: 2 паузы на 3 попытки
	assert.GreaterOrEqual(t, elapsed, 2*c.Backoff)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestAcquire_RecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		serveImage(w, r)
	})
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	data, err := f.Acquire(context.Background(), domain.NewURLInput(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, pngBody, data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAcquire_NonImageContentTypeFails(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	_, err := f.Acquire(context.Background(), domain.NewURLInput(srv.URL))

	assert.ErrorIs(t, err, e.ErrFetchFailed)
	assert.ErrorIs(t, err, errNotImage)
	assert.Equal(t, int32(3), hits.Load())
}

func TestAcquire_FoundWithImageIsAccepted(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte("jpeg"))
	})
	f := NewHTTPFetcher(testCfg(), logger.NewNop())

	data, err := f.Acquire(context.Background(), domain.NewURLInput(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestAcquire_BodyTooLarge(t *testing.T) {
	srv, _ := countingServer(t, serveImage)
	c := testCfg()
	c.MaxBytes = 4
	c.MaxAttempts = 1
	f := NewHTTPFetcher(c, logger.NewNop())

	_, err := f.Acquire(context.Background(), domain.NewURLInput(srv.URL))
	assert.ErrorIs(t, err, errBodyTooLarge)
}

func TestAcquire_CallerCancellation(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := testCfg()
	c.Backoff = 10 * time.Second
	f := NewHTTPFetcher(c, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Acquire(ctx, domain.NewURLInput(srv.URL))

	assert.Equal(t, e.KindFetchFailed, e.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAcquire_TLSVerificationIsOptIn(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(serveImage))
	t.Cleanup(srv.Close)

	c := testCfg()
	c.MaxAttempts = 1

	strict := NewHTTPFetcher(c, logger.NewNop())
	_, err := strict.Acquire(context.Background(), domain.NewURLInput(srv.URL))
	assert.Equal(t, e.KindFetchFailed, e.KindOf(err))

	relaxed := *c
	relaxed.InsecureSkipVerify = true
	lenient := NewHTTPFetcher(&relaxed, logger.NewNop())
	data, err := lenient.Acquire(context.Background(), domain.NewURLInput(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, pngBody, data)
}
