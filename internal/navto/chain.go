package navto

import (
	"context"
	"errors"
)

// Chain returns a Resolver that asks each resolver in order and uses the
// first session found. Resolvers answering ErrNoSession are skipped; any
// other error stops the chain.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

type chain []Resolver

func (c chain) Session(ctx context.Context, file string) (Session, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		s, err := r.Session(ctx, file)
		if errors.Is(err, ErrNoSession) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, ErrNoSession
}
