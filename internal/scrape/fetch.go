// Package scrape collects commentary documents from the two report sources,
// extracts clean text and lands new dates in the commentary table.
package scrape

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotFound marks a definitive miss (HTTP 404): the document does not
// exist for that key and retrying is pointless.
var ErrNotFound = errors.New("document not found")

// Fetcher is the retrying HTTP primitive shared by both sources. Transient
// failures are retried with exponential backoff; a 404 short-circuits.
type Fetcher struct {
	client    *http.Client
	userAgent string

	newBackOff func() backoff.BackOff
}

func NewFetcher(userAgent string, retries uint64, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries)
		},
	}
}

// Get fetches a URL, retrying transient failures. Returns ErrNotFound for a
// definitive 404.
func (f *Fetcher) Get(url string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", url, err)
		}
		return nil
	}

	if err := backoff.Retry(op, f.newBackOff()); err != nil {
		return nil, err
	}
	return body, nil
}
