// Package schoolapi loads grade records from the school REST API.
package schoolapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

const (
	notasPath       = "/notas"
	maxErrBodyBytes = 1024

	initialInterval = 250 * time.Millisecond
	maxInterval     = 5 * time.Second
)

var ErrNoToken = errors.New("session has no API token")

// StatusError is a non 2xx answer of the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("school api: status %d: %s", e.StatusCode, e.Body)
}

// Temporary tells whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Client is a nota.Repository backed by `GET {BaseURL}/notas`.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	MaxRetries int
	logger     core.Logger
}

var _ nota.Repository = (*Client)(nil)

func NewClient(conf core.SourceConfig, logger core.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(conf.BaseURL, "/"),
		HTTP:       &http.Client{Timeout: conf.Timeout},
		MaxRetries: conf.MaxRetries,
		logger:     logger,
	}
}

// ListNotas fetches the records of the session's scope on behalf of its user.
// Network errors and 5xx answers are retried with exponential backoff; 4xx answers are not.
func (c *Client) ListNotas(ctx context.Context, sess session.Session) ([]nota.Nota, error) {
	if sess.Token == "" {
		return nil, ErrNoToken
	}

	var res nota.ListResponse
	op := func() error {
		err := c.get(ctx, sess, notasPath, &res)
		if se, ok := err.(*StatusError); ok && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn(fmt.Sprintf("listing notas for %s: %v; retrying in %s", sess.Scope, err, wait), sess)
	}

	if err := backoff.RetryNotify(op, c.backOff(ctx), notify); err != nil {
		return nil, errors.Wrap(err, "listing notas")
	}
	if res.Items == nil {
		res.Items = []nota.Nota{}
	}
	return res.Items, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries and ctx

	var b backoff.BackOff = bo
	if c.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(c.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

func (c *Client) get(ctx context.Context, sess session.Session, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	req.Header.Set("X-Tenant-ID", strconv.Itoa(sess.Scope.TenantID))
	req.Header.Set("X-Academic-Year-ID", strconv.Itoa(sess.Scope.AcademicYearID))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return backoff.Permanent(errors.Wrap(err, "decoding response"))
	}
	return nil
}
