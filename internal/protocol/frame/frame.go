package frame

import (
	"errors"
	"fmt"
)

const (
	// MaxPayload is the largest payload a single length byte can describe.
	MaxPayload = 255
	// BufferSize is the reader's rolling receive buffer.
	BufferSize = 512
	// MinBufferSize holds one maximal frame plus its length byte.
	MinBufferSize = MaxPayload + 1
)

var (
	ErrFrameTooLarge  = errors.New("frame: payload too large")
	ErrBufferOverflow = errors.New("frame: receive buffer overflow")
	ErrIO             = errors.New("frame: i/o failure")
)

// AppendFrame appends the length byte and payload to dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return dst, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	dst = append(dst, byte(len(payload)))
	return append(dst, payload...), nil
}

// SplitFrames returns every complete frame payload at the head of buf and the
// number of bytes they occupy. Payloads alias buf.
func SplitFrames(buf []byte) (payloads [][]byte, consumed int) {
	for {
		payload, size, ok := nextFrame(buf[consumed:])
		if !ok {
			return payloads, consumed
		}
		payloads = append(payloads, payload)
		consumed += size
	}
}

func nextFrame(buf []byte) (payload []byte, size int, ok bool) {
	if len(buf) == 0 {
		return nil, 0, false
	}
	size = 1 + int(buf[0])
	if len(buf) < size {
		return nil, 0, false
	}
	return buf[1:size], size, true
}
