package federation

import (
	"errors"
	"sync/atomic"
)

// ErrInsufficientBalance is returned by Sub when the amount exceeds the
// balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Balance is a non-negative amount of one symbol, safe for concurrent use.
type Balance struct {
	Symbol string
	amount uint64
}

// NewBalance ...
func NewBalance(symbol string, amount uint64) *Balance {
	return &Balance{Symbol: symbol, amount: amount}
}

// Get returns the current amount.
func (b *Balance) Get() uint64 {
	return atomic.LoadUint64(&b.amount)
}

// Add credits v and returns the new amount.
func (b *Balance) Add(v uint64) uint64 {
	return atomic.AddUint64(&b.amount, v)
}

// Sub debits v and returns the new amount. The balance never goes below zero.
func (b *Balance) Sub(v uint64) (uint64, error) {
	for {
		cur := atomic.LoadUint64(&b.amount)
		if v > cur {
			return cur, ErrInsufficientBalance
		}
		if atomic.CompareAndSwapUint64(&b.amount, cur, cur-v) {
			return cur - v, nil
		}
	}
}

// Zero resets the amount.
func (b *Balance) Zero() {
	atomic.StoreUint64(&b.amount, 0)
}
