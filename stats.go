package rets

import (
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Logins, LoginFailures, Logouts, Requests, RequestErrors
//   - Counters: ReplyCodeErrors, DecodeErrors (with kind label)
//   - Counter: BytesReceived
type ClientStats struct {
	Logins          uint64 // Successful logins
	LoginFailures   uint64 // Failed logins
	Logouts         uint64 // Logouts, successful or not
	Requests        uint64 // HTTP exchanges attempted, including login and logout
	RequestErrors   uint64 // Exchanges that ended in a TransportError
	ReplyCodeErrors uint64 // Metadata replies with a non-zero ReplyCode
	DecodeErrors    uint64 // Metadata replies that could not be decoded
	BytesReceived   uint64 // Response body bytes read
}

// SlotStats contains statistics about the request-slot pool.
//
// Every HTTP exchange holds one slot while it runs, so AcquiredSlots is the
// number of requests in flight and AcquireWaitCount counts requests that had
// to wait for a free slot.
type SlotStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedSlots      uint64 // Total slots created
	DestroyedSlots    uint64 // Total slots destroyed
	AcquireErrors     uint64 // Cancelled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalSlots    int32 // Slots currently allocated (acquired + idle)
	IdleSlots     int32 // Slots available
	AcquiredSlots int32 // Slots currently in use
	MaxSlots      int32
}

// TransportStats combines slot and circuit breaker state for the client's
// RETS host.
type TransportStats struct {
	Host                 string
	Slots                SlotStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordLogin(err error) {
	if err != nil {
		atomic.AddUint64(&c.stats.LoginFailures, 1)
		return
	}
	atomic.AddUint64(&c.stats.Logins, 1)
}

func (c *clientStatsCollector) recordLogout() {
	atomic.AddUint64(&c.stats.Logouts, 1)
}

func (c *clientStatsCollector) recordRequest(bytes int, err error) {
	atomic.AddUint64(&c.stats.Requests, 1)
	atomic.AddUint64(&c.stats.BytesReceived, uint64(bytes))
	if err != nil {
		atomic.AddUint64(&c.stats.RequestErrors, 1)
	}
}

func (c *clientStatsCollector) recordReplyCodeError() {
	atomic.AddUint64(&c.stats.ReplyCodeErrors, 1)
}

func (c *clientStatsCollector) recordDecodeError() {
	atomic.AddUint64(&c.stats.DecodeErrors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Logins:          atomic.LoadUint64(&c.stats.Logins),
		LoginFailures:   atomic.LoadUint64(&c.stats.LoginFailures),
		Logouts:         atomic.LoadUint64(&c.stats.Logouts),
		Requests:        atomic.LoadUint64(&c.stats.Requests),
		RequestErrors:   atomic.LoadUint64(&c.stats.RequestErrors),
		ReplyCodeErrors: atomic.LoadUint64(&c.stats.ReplyCodeErrors),
		DecodeErrors:    atomic.LoadUint64(&c.stats.DecodeErrors),
		BytesReceived:   atomic.LoadUint64(&c.stats.BytesReceived),
	}
}

// waitTime converts a puddle wait duration for SlotStats.
func waitTime(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d.Nanoseconds())
}
