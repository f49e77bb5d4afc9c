// Package download fetches update packages over HTTP.
package download

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"math/rand"
	"net/http"
	"time"

	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Retry controls how failed requests are retried.
type Retry struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	// Jitter randomizes each delay by up to this fraction in either direction.
	Jitter float64
}

func DefaultRetry() Retry {
	return Retry{
		Attempts:     3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		Jitter:       0.3,
	}
}

// StatusError is returned for responses that are neither successful nor
// retried into success.
type StatusError struct {
	Code int
	URI  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: %d %s", e.URI, e.Code, http.StatusText(e.Code))
}

// Absent reports whether the status means there is nothing to download.
func (e *StatusError) Absent() bool {
	return e.Code == http.StatusNotFound || e.Code == http.StatusGone
}

// Downloader fetches packages, retrying transient failures.
type Downloader struct {
	log    logging.Logger
	client *http.Client
	retry  Retry
}

func New(log logging.Logger, client *http.Client, retry Retry) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{log: log, client: client, retry: retry}
}

// Download returns the whole package at uri.
func (d *Downloader) Download(ctx context.Context, uri string) ([]byte, error) {
	resp, err := d.get(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", uri)
	}
	return payload, nil
}

// DownloadStream opens the package at uri. A missing package yields a nil
// stream and no error.
func (d *Downloader) DownloadStream(ctx context.Context, uri string) (io.ReadCloser, error) {
	resp, err := d.get(ctx, uri)
	if err != nil {
		if se, ok := errors.Cause(err).(*StatusError); ok && se.Absent() {
			d.log.WithField("uri", uri).Debug("package not available")
			return nil, nil
		}
		return nil, err
	}
	return resp.Body, nil
}

func (d *Downloader) get(ctx context.Context, uri string) (*http.Response, error) {
	var lastErr error
	delay := d.retry.InitialDelay

	for attempt := 0; attempt <= d.retry.Attempts; attempt++ {
		if attempt > 0 {
			wait := jitter(delay, d.retry.Jitter)
			d.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   wait,
				"uri":     uri,
			}).WithError(lastErr).Debug("retrying download")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			delay = time.Duration(float64(delay) * d.retry.Factor)
			if d.retry.MaxDelay > 0 && delay > d.retry.MaxDelay {
				delay = d.retry.MaxDelay
			}
		}

		req, err := http.NewRequest(http.MethodGet, uri, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		resp, err := d.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = errors.Wrapf(err, "download %s", uri)
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = &StatusError{Code: resp.StatusCode, URI: uri}
		if !retryable(resp.StatusCode) {
			return nil, lastErr
		}
	}

	d.log.WithError(lastErr).WithField("uri", uri).Warn("download retries exhausted")
	return nil, lastErr
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	j := time.Duration(float64(d) + float64(d)*frac*(2*rand.Float64()-1))
	if j < 0 {
		return 0
	}
	return j
}
