package fastload

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-bflb/protocol"
)

func TestReceiverRejectsChunkBeforeHeader(t *testing.T) {
	frame, err := protocol.BuildChunkFrame([]byte("abc"))
	require.NoError(t, err)

	device := &loopDevice{in: bytes.NewReader(frame)}
	_, err = NewReceiver(device).Receive(context.Background(), &bytes.Buffer{})
	assert.True(t, protocol.IsProtocolError(err))
}

func TestReceiverUnknownFrame(t *testing.T) {
	device := &loopDevice{in: bytes.NewReader([]byte{0x01, 0x00, 0x00, 0x00})}
	_, err := NewReceiver(device).Receive(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown command")
}

func TestReceiverSenderCloses(t *testing.T) {
	var in bytes.Buffer
	in.Write(protocol.BuildHeaderFrame(3))
	chunk, _ := protocol.BuildChunkFrame([]byte("abc"))
	in.Write(chunk)
	in.Write(protocol.BuildTrailerFrame())

	device := &loopDevice{in: &in}
	var got bytes.Buffer
	res, err := NewReceiver(device).Receive(context.Background(), &got)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.String())
	assert.Equal(t, int64(3), res.Received)

	// OK, OK, then the hash reply.
	out := device.out.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("OKOKOK")))
	assert.Len(t, out, 4+protocol.HashReplySize)
}

func TestReceiverCancelled(t *testing.T) {
	_, dev := net.Pipe()
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReceiver(dev).Receive(ctx, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

// loopDevice reads frames from in and collects replies in out.
type loopDevice struct {
	in  interface{ Read([]byte) (int, error) }
	out bytes.Buffer
}

func (d *loopDevice) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *loopDevice) Write(p []byte) (int, error) { return d.out.Write(p) }
