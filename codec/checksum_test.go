package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32(t *testing.T) {
	tests := []struct {
		name     string
		ranges   [][]byte
		expected uint32
	}{
		{
			name:     "empty data",
			ranges:   nil,
			expected: 0x00000000,
		},
		{
			name:     "check string",
			ranges:   [][]byte{[]byte("123456789")},
			expected: 0xCBF43926,
		},
		{
			name:     "split ranges match single range",
			ranges:   [][]byte{[]byte("1234"), []byte("56789")},
			expected: 0xCBF43926,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CRC32(tt.ranges...))
		})
	}
}

func TestAppendAndCheckCRC32(t *testing.T) {
	data := []byte("123456789")
	buf := AppendCRC32(nil, data)

	assert.Equal(t, []byte{0x26, 0x39, 0xF4, 0xCB}, buf)
	assert.True(t, CheckCRC32(data, buf))

	tests := []struct {
		name   string
		stored []byte
	}{
		{name: "flipped bit", stored: []byte{0x27, 0x39, 0xF4, 0xCB}},
		{name: "short", stored: []byte{0x26, 0x39, 0xF4}},
		{name: "long", stored: []byte{0x26, 0x39, 0xF4, 0xCB, 0x00}},
		{name: "big-endian", stored: []byte{0xCB, 0xF4, 0x39, 0x26}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, CheckCRC32(data, tt.stored))
		})
	}
}

func BenchmarkCRC32(b *testing.B) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CRC32(data)
	}
}
