package errchannel

import "go.uber.org/atomic"

// ErrChannel wraps an error channel so that concurrent senders cannot write
// after close or race on closing. Only the first error is retained.
type ErrChannel struct {
	channel chan error
	closed  atomic.Bool
}

func New() *ErrChannel {
	return &ErrChannel{
		channel: make(chan error, 1),
	}
}

// Send delivers an error unless one was already delivered or the channel is
// closed. It never blocks.
func (e *ErrChannel) Send(err error) {
	if e.closed.Load() {
		return
	}
	select {
	case e.channel <- err:
	default:
	}
}

func (e *ErrChannel) Recv() <-chan error {
	return e.channel
}

func (e *ErrChannel) Close() {
	if swapped := e.closed.CAS(false, true); swapped {
		close(e.channel)
	}
}
