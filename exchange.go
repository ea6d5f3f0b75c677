package rets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// Exchange operations, used in errors and logs.
const (
	opLogin       = "login"
	opLogout      = "logout"
	opGetMetadata = "getmetadata"
)

// RawResponse is the outcome of one successful HTTP exchange.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
	Duration   time.Duration
}

// exchange runs a single GET request against u with the session cookies in
// jar. Non-2xx replies and network failures are returned as *TransportError.
// The request is wrapped with the client's circuit breaker.
func (c *Client) exchange(ctx context.Context, op string, u *url.URL, jar http.CookieJar) (*RawResponse, error) {
	var (
		resp *RawResponse
		err  error
	)
	if c.breaker == nil {
		resp, err = c.exchangeDirect(ctx, op, u, jar)
	} else {
		resp, err = c.breaker.Execute(func() (*RawResponse, error) {
			return c.exchangeDirect(ctx, op, u, jar)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &TransportError{Op: op, URL: redactURL(u), Err: err}
		}
	}

	n := 0
	if resp != nil {
		n = len(resp.Body)
	}
	c.stats.recordRequest(n, err)
	return resp, err
}

// exchangeDirect performs the exchange while holding a request slot.
func (c *Client) exchangeDirect(ctx context.Context, op string, u *url.URL, jar http.CookieJar) (*RawResponse, error) {
	var out *RawResponse
	err := c.slots.with(ctx, func(buf *bytes.Buffer) error {
		var err error
		out, err = c.roundTrip(ctx, op, u, jar, buf)
		return err
	})
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			// Slot acquisition failed: cancelled context or closed client.
			err = &TransportError{Op: op, URL: redactURL(u), Err: err}
		}
		return nil, err
	}
	return out, nil
}

// roundTrip sends the request, answering at most one digest challenge.
func (c *Client) roundTrip(ctx context.Context, op string, u *url.URL, jar http.CookieJar, buf *bytes.Buffer) (*RawResponse, error) {
	start := time.Now()
	target := redactURL(u)

	for attempt := 0; ; attempt++ {
		req, requestID, err := c.newRequest(ctx, u, jar)
		if err != nil {
			return nil, &TransportError{Op: op, URL: target, Err: err}
		}

		c.logger.Debug("rets request", "op", op, "url", target, "request_id", requestID, "attempt", attempt)

		httpResp, err := c.doer.Do(req)
		if err != nil {
			return nil, &TransportError{Op: op, URL: target, Err: err}
		}

		if jar != nil {
			if cookies := httpResp.Cookies(); len(cookies) > 0 {
				jar.SetCookies(u, cookies)
			}
		}

		if httpResp.StatusCode == http.StatusUnauthorized && attempt == 0 &&
			c.auth.challenged(httpResp, req.Header.Get("Authorization") != "") {
			drain(httpResp.Body)
			continue
		}

		buf.Reset()
		_, err = buf.ReadFrom(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			return nil, &TransportError{Op: op, URL: target, StatusCode: 0, Err: err}
		}

		c.logger.Debug("rets response", "op", op, "status", httpResp.StatusCode,
			"bytes", buf.Len(), "request_id", requestID, "duration", time.Since(start))

		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return nil, &TransportError{
				Op:         op,
				URL:        target,
				StatusCode: httpResp.StatusCode,
				Err:        errors.New(http.StatusText(httpResp.StatusCode)),
			}
		}

		return &RawResponse{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       bytes.Clone(buf.Bytes()),
			RequestID:  requestID,
			Duration:   time.Since(start),
		}, nil
	}
}

func (c *Client) newRequest(ctx context.Context, u *url.URL, jar http.CookieJar) (*http.Request, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("RETS-Version", c.retsVersion)
	req.Header.Set("RETS-Request-ID", requestID)
	req.Header.Set("Accept", "*/*")

	var sessionID string
	if jar != nil {
		for _, cookie := range jar.Cookies(u) {
			req.AddCookie(cookie)
			if cookie.Name == SessionCookie {
				sessionID = cookie.Value
			}
		}
	}

	if c.userAgentPassword != "" {
		req.Header.Set("RETS-UA-Authorization",
			uaAuthorization(c.userAgent, c.userAgentPassword, requestID, sessionID, c.retsVersion))
	}
	c.auth.authorize(req)
	return req, requestID, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}
