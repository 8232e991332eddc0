package fastload

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

// ErrTimeout is wrapped by TransferError when a reply does not arrive in
// time.
var ErrTimeout = errors.New("read timeout")

// readDeadliner is implemented by net.Conn.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// writeDeadliner is implemented by net.Conn.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// readTimeouter is implemented by go.bug.st/serial ports, whose Read returns
// (0, nil) once the timeout expires.
type readTimeouter interface {
	SetReadTimeout(t time.Duration) error
}

// withReadDeadline returns device unchanged when it already bounds its
// reads. Otherwise it wraps device in a deadlineDevice so that reply timeouts
// and cancellation still apply.
func withReadDeadline(device io.ReadWriter) io.ReadWriter {
	switch device.(type) {
	case readDeadliner, readTimeouter:
		return device
	}
	return &deadlineDevice{
		Writer:  device,
		r:       device,
		changed: make(chan struct{}),
	}
}

type readResult struct {
	data []byte
	err  error
}

// deadlineDevice adds SetReadDeadline to a plain reader. Each underlying
// Read runs in its own goroutine; a Read that times out leaves it running,
// and whatever it returns is handed to the next Read. Read must not be
// called concurrently.
type deadlineDevice struct {
	io.Writer
	r io.Reader

	mu       sync.Mutex
	deadline time.Time
	changed  chan struct{}

	inflight chan readResult
	buf      []byte
	err      error
}

func (d *deadlineDevice) SetReadDeadline(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadline = t
	close(d.changed)
	d.changed = make(chan struct{})
	return nil
}

func (d *deadlineDevice) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(d.buf) > 0 {
		n := copy(p, d.buf)
		d.buf = d.buf[n:]
		return n, nil
	}
	if d.err != nil {
		return 0, d.err
	}

	if d.inflight == nil {
		ch := make(chan readResult, 1)
		buf := make([]byte, len(p))
		go func() {
			n, err := d.r.Read(buf)
			ch <- readResult{data: buf[:n], err: err}
		}()
		d.inflight = ch
	}

	for {
		d.mu.Lock()
		deadline, changed := d.deadline, d.changed
		d.mu.Unlock()

		var timer *time.Timer
		var expired <-chan time.Time
		if !deadline.IsZero() {
			wait := time.Until(deadline)
			if wait <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer = time.NewTimer(wait)
			expired = timer.C
		}

		var res readResult
		got := false
		select {
		case res = <-d.inflight:
			got = true
		case <-expired:
		case <-changed:
		}
		if timer != nil {
			timer.Stop()
		}

		switch {
		case got:
			d.inflight = nil
			n := copy(p, res.data)
			d.buf = res.data[n:]
			if res.err != nil && n > 0 {
				d.err = res.err
				return n, nil
			}
			return n, res.err
		case expired != nil && !time.Now().Before(deadline):
			return 0, os.ErrDeadlineExceeded
		}
	}
}

// watchContext interrupts a blocked read when ctx is cancelled. The returned
// function must be called to release the watcher.
func watchContext(ctx context.Context, device io.Reader) func() bool {
	d, ok := device.(readDeadliner)
	if !ok {
		return func() bool { return true }
	}
	return context.AfterFunc(ctx, func() {
		_ = d.SetReadDeadline(time.Now())
	})
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// readReply reads until max bytes arrived, the transport times out, or it
// reports EOF. A reply shorter than max is returned as is; no bytes at all
// is ErrTimeout.
func readReply(ctx context.Context, device io.Reader, max int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	switch d := device.(type) {
	case readDeadliner:
		if err := d.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	case readTimeouter:
		if err := d.SetReadTimeout(time.Until(deadline)); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, max)
	n := 0
	for n < max {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := device.Read(buf[n:])
		n += m
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTimeout(err) || errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if m == 0 || time.Now().After(deadline) {
			break
		}
	}

	if n == 0 {
		return nil, ErrTimeout
	}
	return buf[:n], nil
}

// writeFrame writes one frame, bounded by timeout where the transport
// supports deadlines.
func writeFrame(device io.Writer, frame []byte, timeout time.Duration) error {
	if d, ok := device.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	_, err := device.Write(frame)
	return err
}
