package adapters

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/core"
	"debforge/internal/ports"
	"debforge/internal/shared"
	"debforge/internal/types"
)

// HTTPFetchAdapter downloads remote artifacts with a configurable
// mirror strategy. A fetch short-circuits when the target file already
// matches its checksum, tries a primary URL with a fallback on
// transport failure, retries each download with capped backoff, and
// re-verifies the checksum afterwards. A post-download mismatch is
// terminal: a corrupt mirror must not be retried into acceptance.
type HTTPFetchAdapter struct {
	MirrorBase  string
	Strategy    types.FetchStrategy
	Retries     int
	RetryDelay  time.Duration
	SpeedFloor  int64 // minimum bytes per floor window
	FloorWindow time.Duration

	client *http.Client
}

const defaultFetchRetries = 5
const defaultFetchRetryDelay = 500 * time.Millisecond
const maxFetchRetryDelay = 8 * time.Second
const defaultConnectTimeout = 15 * time.Second
const defaultSpeedFloor = 1024 // bytes
const defaultFloorWindow = 15 * time.Second

func NewHTTPFetchAdapter(mirrorBase string, strategy types.FetchStrategy, retries int, retryDelayMs int, connectTimeoutSec int) (HTTPFetchAdapter, error) {
	switch strategy {
	case types.FetchStrategyMirrorFirst, types.FetchStrategyUpstreamFirst,
		types.FetchStrategyMirrorOnly, types.FetchStrategyUpstreamOnly:
	default:
		return HTTPFetchAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown fetch strategy: %s", strategy))
	}
	if strategy != types.FetchStrategyUpstreamOnly && strings.TrimSpace(mirrorBase) == "" {
		return HTTPFetchAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("fetch strategy %s requires a mirror base url", strategy))
	}
	if retries <= 0 {
		retries = defaultFetchRetries
	}
	delay := defaultFetchRetryDelay
	if retryDelayMs > 0 {
		delay = time.Duration(retryDelayMs) * time.Millisecond
	}
	connectTimeout := defaultConnectTimeout
	if connectTimeoutSec > 0 {
		connectTimeout = time.Duration(connectTimeoutSec) * time.Second
	}
	return HTTPFetchAdapter{
		MirrorBase:  strings.TrimRight(mirrorBase, "/"),
		Strategy:    strategy,
		Retries:     retries,
		RetryDelay:  delay,
		SpeedFloor:  defaultSpeedFloor,
		FloorWindow: defaultFloorWindow,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				ResponseHeaderTimeout: connectTimeout,
			},
		},
	}, nil
}

func (a HTTPFetchAdapter) Fetch(ctx context.Context, rawURL string, savePath string, expected types.ChecksumRecord) error {
	expected.Path = savePath
	if expected.Expected != "" && core.ChecksumMatches(expected) {
		log.Debug().Str("file", savePath).Msg("checksum already matches, skipping download")
		return nil
	}

	primary, fallback, err := a.resolveURLs(rawURL)
	if err != nil {
		return err
	}

	log.Info().Str("url", primary).Str("file", savePath).Msg("downloading")
	if err := a.download(ctx, primary, savePath); err != nil {
		if fallback == "" {
			return err
		}
		log.Warn().Str("url", primary).Err(err).Str("fallback", fallback).Msg("primary download failed, trying fallback")
		if err := a.download(ctx, fallback, savePath); err != nil {
			return err
		}
	}

	if expected.Expected == "" {
		return nil
	}
	return core.VerifyChecksum(expected)
}

// resolveURLs maps the upstream URL to a (primary, fallback) pair per
// the configured strategy. The mirror location mirrors the upstream
// host and path under the mirror base.
func (a HTTPFetchAdapter) resolveURLs(rawURL string) (string, string, error) {
	switch a.Strategy {
	case types.FetchStrategyUpstreamOnly:
		return rawURL, "", nil
	}
	mirror, err := a.mirrorURL(rawURL)
	if err != nil {
		return "", "", err
	}
	switch a.Strategy {
	case types.FetchStrategyMirrorFirst:
		return mirror, rawURL, nil
	case types.FetchStrategyUpstreamFirst:
		return rawURL, mirror, nil
	case types.FetchStrategyMirrorOnly:
		return mirror, "", nil
	}
	return "", "", errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unknown fetch strategy: %s", a.Strategy))
}

func (a HTTPFetchAdapter) mirrorURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid download url: %s", rawURL)).
			WithCause(err)
	}
	return a.MirrorBase + "/" + parsed.Host + parsed.Path, nil
}

func (a HTTPFetchAdapter) download(ctx context.Context, rawURL string, savePath string) error {
	var lastErr error
	delay := a.RetryDelay
	for attempt := 0; attempt <= a.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxFetchRetryDelay {
				delay = maxFetchRetryDelay
			}
		}
		lastErr = a.downloadOnce(ctx, rawURL, savePath)
		if lastErr == nil {
			return nil
		}
		log.Debug().Str("url", rawURL).Int("attempt", attempt+1).Err(lastErr).Msg("download attempt failed")
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("download failed after %d attempts: %s", a.Retries+1, rawURL)).
		WithCause(lastErr)
}

func (a HTTPFetchAdapter) downloadOnce(ctx context.Context, rawURL string, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return shared.HTTPStatusError(resp.StatusCode, rawURL)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(savePath)
	if err != nil {
		return err
	}
	defer out.Close()

	// The floor check only fires after a Read returns, so a server that
	// goes silent mid-body would block forever. A watchdog closes the
	// body when a full window passes without any data, which fails the
	// read and feeds the attempt into the retry loop.
	body := io.Reader(resp.Body)
	var stalled atomic.Bool
	if a.FloorWindow > 0 {
		watchdog := time.AfterFunc(a.FloorWindow, func() {
			stalled.Store(true)
			resp.Body.Close()
		})
		defer watchdog.Stop()
		body = progressReader{r: resp.Body, touch: func() { watchdog.Reset(a.FloorWindow) }}
	}
	if err := copyWithFloor(out, body, a.SpeedFloor, a.FloorWindow); err != nil {
		if stalled.Load() {
			return fmt.Errorf("transfer stalled for %s: %s", a.FloorWindow, rawURL)
		}
		return err
	}
	return out.Sync()
}

// progressReader rearms the stall watchdog on every read that makes
// progress.
type progressReader struct {
	r     io.Reader
	touch func()
}

func (p progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.touch()
	}
	return n, err
}

// copyWithFloor copies src to dst and fails when throughput stays
// below floor bytes per window, the analogue of a curl speed limit: a
// stalled transfer is a transport failure, not a hang.
func copyWithFloor(dst io.Writer, src io.Reader, floor int64, window time.Duration) error {
	if floor <= 0 || window <= 0 {
		_, err := io.Copy(dst, src)
		return err
	}
	buf := make([]byte, 32*1024)
	windowStart := time.Now()
	var windowBytes int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			windowBytes += int64(n)
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if elapsed := time.Since(windowStart); elapsed >= window {
			if windowBytes < floor {
				return fmt.Errorf("transfer below %d bytes in %s", floor, window)
			}
			windowStart = time.Now()
			windowBytes = 0
		}
	}
}

var _ ports.RemoteFetcher = HTTPFetchAdapter{}
