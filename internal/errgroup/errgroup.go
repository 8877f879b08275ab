package errgroup

import (
	"context"

	"github.com/therne/errorist"
	"golang.org/x/sync/errgroup"
)

// Group is an errgroup.Group whose goroutines recover panics into errors,
// so a panicking worker fails its query instead of crashing the process.
type Group struct {
	g *errgroup.Group
}

// WithContext returns a Group bound to a derived context which is canceled
// the first time a goroutine returns an error or panics.
func WithContext(ctx context.Context) (*Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g}, gctx
}

func (w *Group) Go(fn func() error) {
	w.g.Go(func() (err error) {
		defer func() {
			if perr := errorist.WrapPanic(recover()); perr != nil {
				err = perr
			}
		}()
		return fn()
	})
}

func (w *Group) Wait() error {
	return w.g.Wait()
}
