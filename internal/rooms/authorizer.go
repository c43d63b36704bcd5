package rooms

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/domain"
)

// Authorizer decides whether two users may share a room. It is consulted
// before any room is created, whichever surface asked for it.
type Authorizer interface {
	CanChat(ctx context.Context, a, b string) error
}

// OpenPolicy lets any two distinct users chat.
type OpenPolicy struct{}

func (OpenPolicy) CanChat(context.Context, string, string) error { return nil }

// PairPolicy only allows pairs that were matched beforehand.
type PairPolicy struct {
	pairs map[string]struct{}
}

// NewPairPolicy builds a PairPolicy from the given matched pairs.
func NewPairPolicy(pairs ...[2]string) *PairPolicy {
	p := &PairPolicy{pairs: make(map[string]struct{}, len(pairs))}
	for _, pair := range pairs {
		p.Allow(pair[0], pair[1])
	}
	return p
}

// Allow records a match between a and b.
func (p *PairPolicy) Allow(a, b string) {
	p.pairs[domain.RoomName(a, b)] = struct{}{}
}

func (p *PairPolicy) CanChat(_ context.Context, a, b string) error {
	if _, ok := p.pairs[domain.RoomName(a, b)]; !ok {
		return fmt.Errorf("users %s and %s are not matched: %w", a, b, domain.ErrForbidden)
	}
	return nil
}
