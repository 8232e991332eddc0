package fastload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-bflb/protocol"
)

// pipeDevice is a transport with no deadline or timeout support.
type pipeDevice struct {
	r io.Reader
	w io.Writer
}

func (d *pipeDevice) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *pipeDevice) Write(p []byte) (int, error) { return d.w.Write(p) }

// silentDevice accepts every frame and never answers.
func silentDevice(t *testing.T) *pipeDevice {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	return &pipeDevice{r: pr, w: io.Discard}
}

// SerialDevice behaves like a go.bug.st/serial port: the timeout is set with
// SetReadTimeout and an expired read returns (0, nil).
type SerialDevice struct {
	mu       sync.Mutex
	replies  [][]byte
	writes   [][]byte
	timeouts []time.Duration
}

func (d *SerialDevice) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeouts = append(d.timeouts, t)
	return nil
}

func (d *SerialDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.replies) == 0 {
		return 0, nil
	}
	n := copy(p, d.replies[0])
	if n < len(d.replies[0]) {
		d.replies[0] = d.replies[0][n:]
	} else {
		d.replies = d.replies[1:]
	}
	return n, nil
}

func (d *SerialDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, append([]byte(nil), p...))
	return len(p), nil
}

func TestSendTimeoutWithoutDeadlines(t *testing.T) {
	s := New(silentDevice(t), WithReadTimeout(100*time.Millisecond))

	start := time.Now()
	err := s.Send(context.Background(), bytes.NewReader([]byte("abc")), 3)

	assert.Equal(t, CodeTimeout, ErrorCode(err))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendContextDeadlineWithoutDeadlines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s := New(silentDevice(t), WithReadTimeout(10*time.Second))

	start := time.Now()
	err := s.Send(ctx, bytes.NewReader([]byte("abc")), 3)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendCancelledWithoutDeadlines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	s := New(silentDevice(t), WithReadTimeout(10*time.Second))
	err := s.Send(ctx, bytes.NewReader([]byte("abc")), 3)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestReceiverCancelledWithoutDeadlines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	rx := NewReceiver(silentDevice(t))
	done := make(chan error, 1)
	go func() {
		_, err := rx.Receive(ctx, io.Discard)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Receive ignored cancellation")
	}
}

func TestSendOverPlainPipes(t *testing.T) {
	toDevice, fromHost := io.Pipe()
	toHost, fromDevice := io.Pipe()
	defer fromHost.Close()
	defer fromDevice.Close()

	host := &pipeDevice{r: toHost, w: fromHost}
	device := &pipeDevice{r: toDevice, w: fromDevice}

	data := testData(9000)
	var got bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := NewReceiver(device).Receive(context.Background(), &got)
		done <- err
	}()

	err := New(host, WithReadTimeout(5*time.Second)).Send(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, data, got.Bytes())
}

func TestDeadlineDeviceKeepsLateReply(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	d := withReadDeadline(&pipeDevice{r: pr, w: io.Discard}).(*deadlineDevice)

	require.NoError(t, d.SetReadDeadline(time.Now().Add(20*time.Millisecond)))
	buf := make([]byte, 2)
	_, err := d.Read(buf)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)

	_, err = pw.Write([]byte("OK"))
	require.NoError(t, err)

	require.NoError(t, d.SetReadDeadline(time.Time{}))
	n, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(buf[:n]))
}

func TestWithReadDeadlineKeepsCapableDevices(t *testing.T) {
	serial := &SerialDevice{}
	assert.Same(t, serial, withReadDeadline(serial))

	mock := NewMockDevice()
	_, wrapped := withReadDeadline(mock).(*deadlineDevice)
	assert.True(t, wrapped)
}

func TestSendSerialTimeout(t *testing.T) {
	device := &SerialDevice{replies: [][]byte{[]byte("OK")}}
	s := New(device, WithReadTimeout(50*time.Millisecond))

	err := s.Send(context.Background(), bytes.NewReader([]byte("abc")), 3)

	require.Equal(t, CodeTimeout, ErrorCode(err))
	assert.True(t, errors.Is(err, ErrTimeout))
	var te *TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "chunk 1/1", te.Step)

	device.mu.Lock()
	defer device.mu.Unlock()
	require.Len(t, device.timeouts, 2, "one timeout per awaited reply")
	for _, d := range device.timeouts {
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
	assert.Len(t, device.writes, 2)
}

func TestSendSerialSuccess(t *testing.T) {
	data := []byte("abc")
	sum := sha256.Sum256(data)
	device := &SerialDevice{replies: [][]byte{
		[]byte(protocol.AckOK),
		[]byte(protocol.AckOK),
		[]byte(protocol.AckOK + hex.EncodeToString(sum[:])),
	}}

	err := New(device, WithReadTimeout(50*time.Millisecond)).Send(context.Background(), bytes.NewReader(data), 3)
	require.NoError(t, err)

	device.mu.Lock()
	defer device.mu.Unlock()
	assert.Len(t, device.timeouts, 3)
	require.Len(t, device.writes, 4)
	assert.Equal(t, protocol.CheckHash, string(device.writes[3]))
}
