package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/ipc"
)

// baseURL is never resolved; every request is dialed over the daemon's unix socket.
const baseURL = "http://brunosync"

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.Status), e.Message)
}

type Client struct {
	logger *logrus.Logger
	key    string
	cli    *http.Client
}

// NewClient returns a client that talks to the daemon listening on socketPath and signs requests with key.
func NewClient(logger *logrus.Logger, socketPath, key string) *Client {
	dialer := &net.Dialer{Timeout: time.Second}
	return &Client{
		logger: logger,
		key:    key,
		cli: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// Do sends in as the JSON body of a request to path and decodes the reply into out. Either may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json encode request: %w", err)
		}
	}

	u, err := url.JoinPath(baseURL, path)
	if err != nil {
		return fmt.Errorf("create url: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	resp, err := c.doRequestWithRetry(ctx, method, u, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil {
			apiErr.Message = errResp.Error
		}
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Debug("Request failed with unexpected status code")
		return apiErr
	}

	if out == nil {
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("json decode response: %w", err)
	}
	return nil
}

func (c *Client) doRequestWithRetry(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	bk := backoff.WithContext(newExponentialBackoffConfig(), ctx)
	return backoff.RetryWithData[*http.Response](func() (*http.Response, error) {
		// a fresh request per attempt keeps the signature timestamp current
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("could not create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		ipc.Sign(req, c.key, time.Now())

		resp, err := c.cli.Do(req)
		if err != nil {
			if !retryable(err) {
				return nil, backoff.Permanent(fmt.Errorf("could not make http call: %w", err))
			}
			c.logger.WithField("method", method).WithError(err).Debug("Daemon not reachable, retrying...")
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		return resp, nil
	}, bk)
}

// retryable reports whether err means the daemon may not be listening yet.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}

func newExponentialBackoffConfig() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(time.Second*3),
		backoff.WithMaxInterval(time.Second),
		backoff.WithInitialInterval(time.Millisecond*100),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.2),
	)
}
