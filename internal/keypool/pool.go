// Package keypool holds the shared pool of upstream API credentials.
//
// The pool is the only mutable state shared across in-flight requests:
// a cursor over an ordered key list plus the set of keys rejected
// permanently by the provider. All operations are synchronous,
// non-blocking and safe for concurrent use.
package keypool

import "sync"

type Pool struct {
	mu      sync.Mutex
	keys    []string
	cursor  int
	invalid map[string]struct{}
}

// New builds a pool over the given ordered keys. An empty list is a
// valid degenerate pool: every operation reports "no credential
// available" instead of failing.
func New(keys []string) *Pool {
	return &Pool{
		keys:    keys,
		invalid: make(map[string]struct{}),
	}
}

// Size returns the number of configured keys, valid or not.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Current returns the credential at the cursor. When the cursor sits on
// an invalidated key it advances first, so the second return is false
// only for an empty or fully invalid pool.
func (p *Pool) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", false
	}
	if _, bad := p.invalid[p.keys[p.cursor]]; bad {
		if !p.advanceLocked() {
			return "", false
		}
	}
	return p.keys[p.cursor], true
}

// Next advances the cursor to the next key not marked invalid, scanning
// at most once around the pool. It returns false when no usable key
// remains. With a single valid key the cursor wraps back onto it.
func (p *Pool) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked()
}

// MarkInvalid permanently removes a key from rotation. Idempotent.
func (p *Pool) MarkInvalid(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalid[key] = struct{}{}
}

func (p *Pool) advanceLocked() bool {
	n := len(p.keys)
	if n == 0 {
		return false
	}
	for i := 1; i <= n; i++ {
		c := (p.cursor + i) % n
		if _, bad := p.invalid[p.keys[c]]; !bad {
			p.cursor = c
			return true
		}
	}
	return false
}
