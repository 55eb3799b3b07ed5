// Package middleware decorates breakpoint repositories.
package middleware

import "github.com/aretw0/bugjar/pkg/ports"

// Middleware allows wrapping a BreakpointRepository to add behavior.
type Middleware func(ports.BreakpointRepository) ports.BreakpointRepository

// Chain applies mws so that the first one is outermost.
func Chain(repo ports.BreakpointRepository, mws ...Middleware) ports.BreakpointRepository {
	for i := len(mws) - 1; i >= 0; i-- {
		repo = mws[i](repo)
	}
	return repo
}
