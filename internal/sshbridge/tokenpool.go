package sshbridge

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// maxHandlers bounds the number of ssh handlers that may be live at
// once — also the number of distinct shared-memory slot names
// available.
const maxHandlers = 4

var tokenMasks = [maxHandlers]byte{0x01, 0x02, 0x04, 0x08}

// TokenPool hands out one of four distinct masks to each live
// handler. The semaphore bounds concurrent holders to maxHandlers; the
// mutex-guarded bitmask then picks a free bit, so the semaphore permit
// count and the number of set bits are always in lockstep.
type TokenPool struct {
	sem *semaphore.Weighted

	mu   sync.Mutex
	used byte
}

// NewTokenPool returns a pool with maxHandlers permits free.
func NewTokenPool() *TokenPool {
	return &TokenPool{sem: semaphore.NewWeighted(maxHandlers)}
}

// Token is the pool's receipt: a reserved permit plus a mask unique
// among currently-live tokens.
type Token struct {
	pool *TokenPool
	mask byte
}

// Mask returns this token's slot-naming byte.
func (t *Token) Mask() byte { return t.mask }

// Acquire blocks until a permit is free, then claims the lowest
// unused mask bit. ctx cancellation unblocks a caller waiting on a
// saturated pool.
func (p *TokenPool) Acquire(ctx context.Context) (*Token, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Other, err, "acquiring token pool permit")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, mask := range tokenMasks {
		if p.used&mask == 0 {
			p.used |= mask
			return &Token{pool: p, mask: mask}, nil
		}
	}
	// Unreachable: the semaphore already admits at most maxHandlers
	// concurrent holders, one per bit.
	panic("sshbridge: token pool semaphore admitted more holders than bits available")
}

// Release frees the mask bit and the semaphore permit, in that order,
// so a waiter unblocked by the permit release never observes a mask
// still marked used.
func (t *Token) Release() {
	t.pool.mu.Lock()
	t.pool.used &^= t.mask
	t.pool.mu.Unlock()
	t.pool.sem.Release(1)
}
