package rets

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// maxRetainedBuffer caps the body buffer a slot keeps between requests.
// Full METADATA-TABLE replies of large systems run to several MB; anything
// bigger than this is dropped after use instead of being pinned in the pool.
const maxRetainedBuffer = 4 << 20

// slot is a request slot. Holding one is required to run an HTTP exchange.
type slot struct {
	buf bytes.Buffer
}

// slotPool bounds the number of in-flight requests of a client and recycles
// response buffers between them.
type slotPool struct {
	pool      *puddle.Pool[*slot]
	maxSize   int32
	created   atomic.Int64
	destroyed atomic.Int64
}

func newSlotPool(maxSize int32) (*slotPool, error) {
	p := &slotPool{maxSize: maxSize}

	pool, err := puddle.NewPool(&puddle.Config[*slot]{
		Constructor: func(ctx context.Context) (*slot, error) {
			p.created.Add(1)
			return &slot{}, nil
		},
		Destructor: func(*slot) {
			p.destroyed.Add(1)
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// with runs fn while holding a slot. The slot buffer is empty when fn starts.
func (p *slotPool) with(ctx context.Context, fn func(buf *bytes.Buffer) error) error {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	s := res.Value()
	s.buf.Reset()
	err = fn(&s.buf)

	if s.buf.Cap() > maxRetainedBuffer {
		res.Destroy()
	} else {
		res.Release()
	}
	return err
}

func (p *slotPool) close() {
	p.pool.Close()
}

// stats returns a snapshot of the pool by converting puddle's stats.
func (p *slotPool) stats() SlotStats {
	s := p.pool.Stat()

	return SlotStats{
		TotalSlots:        s.TotalResources(),
		IdleSlots:         s.IdleResources(),
		AcquiredSlots:     s.AcquiredResources(),
		MaxSlots:          p.maxSize,
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedSlots:      uint64(p.created.Load()),
		DestroyedSlots:    uint64(p.destroyed.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: waitTime(s.EmptyAcquireWaitTime()),
	}
}
