// Package keypool hands out upstream API credentials round-robin.
package keypool

import (
	"strings"
	"sync/atomic"

	aierr "Scribeline/pkg/errors"
)

// Pool is an ordered, immutable set of credentials with a shared cursor.
// The cursor is advanced atomically, so concurrent callers of Next observe an
// even distribution across keys.
type Pool struct {
	keys   []string
	cursor atomic.Uint64
}

// New builds a pool from keys, dropping empty and whitespace-only entries.
// Surrounding whitespace is trimmed from the kept keys.
func New(keys []string) *Pool {
	p := &Pool{keys: make([]string, 0, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// FromValues builds a pool from untyped configuration values.
// Anything that is not a non-blank string is dropped.
func FromValues(values []any) *Pool {
	keys := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			keys = append(keys, s)
		}
	}
	return New(keys)
}

// Size returns the number of usable credentials.
func (p *Pool) Size() int {
	return len(p.keys)
}

// Current returns the credential under the cursor without advancing it.
func (p *Pool) Current() (string, error) {
	if len(p.keys) == 0 {
		return "", errEmpty()
	}
	return p.keys[p.cursor.Load()%uint64(len(p.keys))], nil
}

// Next returns the credential under the cursor and advances it.
func (p *Pool) Next() (string, error) {
	if len(p.keys) == 0 {
		return "", errEmpty()
	}
	n := p.cursor.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))], nil
}

func errEmpty() error {
	return aierr.Configuration("credential pool is empty: no usable API keys configured")
}

// Mask shortens a credential for logs, keeping the first and last four characters.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
