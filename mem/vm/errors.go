package vm

import "errors"

// Errors reported by the virtual memory layer. Frame and bounds errors come
// from package physmem.
var (
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidArea   = errors.New("invalid area")
	ErrOverlap       = errors.New("area overlap")
	ErrOutOfSpace    = errors.New("out of virtual space")
	ErrSwapExhausted = errors.New("swap exhausted")
	ErrNoVictim      = errors.New("no victim page")
)
