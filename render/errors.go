package render

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSampleCache is returned by Recolor on a Generator created without
	// WithSampleCache.
	ErrNoSampleCache = errors.New("render: generator keeps no sample cache")

	// ErrNeedsRecompute is returned by Recolor when the cached samples do not
	// match the parameters, or no complete render has populated them.
	ErrNeedsRecompute = errors.New("render: parameters need a full recompute")
)

// WorkerPanicError reports a panic inside a render worker. The render is
// aborted: the remaining workers stop at their next row.
type WorkerPanicError struct {
	Worker int
	Value  any
	Stack  []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("render: worker %d panicked: %v", e.Worker, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *WorkerPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
