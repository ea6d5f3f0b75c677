package rets

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreakerConfig returns a function that creates a circuit breaker
// for the RETS host. This is a helper for the common case; plug it into
// Config.NewCircuitBreaker.
//
// The breaker opens once at least 3 requests were seen in the interval and
// 60% of them failed. Only transport failures and 5xx replies count as
// failures: a rejected login or a non-zero reply code is the server working.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[*RawResponse] {
	return func(host string) *gobreaker.CircuitBreaker[*RawResponse] {
		settings := gobreaker.Settings{
			Name:        host,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: isBreakerSuccess,
		}
		return gobreaker.NewCircuitBreaker[*RawResponse](settings)
	}
}

// isBreakerSuccess reports whether an exchange outcome shows a healthy server.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var te *TransportError
	if !errors.As(err, &te) {
		return true
	}
	if te.StatusCode == 0 {
		return false
	}
	return te.StatusCode < http.StatusInternalServerError
}
