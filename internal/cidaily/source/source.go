// Package source holds plumbing shared by the report source API clients.
package source

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultConnTimeoutSec      = 30
	defaultMaxIdleConns        = 100
	defaultMaxConnsPerHost     = 100
	defaultMaxIdleConnsPerHost = 100
	timestampLayoutNoZone      = "2006-01-02T15:04:05"
)

// NewHTTPClient builds the http.Client used by the API clients, tuning the
// transport for connection reuse. Each fetcher owns its own client.
func NewHTTPClient() *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = defaultMaxIdleConns
	t.MaxConnsPerHost = defaultMaxConnsPerHost
	t.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost

	return &http.Client{
		Timeout:   defaultConnTimeoutSec * time.Second,
		Transport: t,
	}
}

// Time decodes API timestamps. Values carrying no explicit zone are
// interpreted as UTC.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = ts.UTC()
		return nil
	}
	ts, err := time.Parse(timestampLayoutNoZone, s)
	if err != nil {
		return errors.Errorf("unparseable timestamp %q", s)
	}
	t.Time = ts.UTC()
	return nil
}
