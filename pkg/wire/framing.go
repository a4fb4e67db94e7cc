package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameBytes is the largest frame the daemon will read. Longer frames
// are rejected before the payload is read, so a hostile length prefix can't
// force an unbounded allocation.
const MaxFrameBytes = 100 * 1024 * 1024

// WriteMessage frames v as a little-endian u32 length followed by its JSON
// encoding, and writes it to w.
func WriteMessage(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if len(payload) > MaxFrameBytes {
		return fmt.Errorf("message too large: %d bytes", len(payload))
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON frame from r and decodes it
// into v. Frames larger than MaxFrameBytes are rejected without reading
// their payload.
func ReadMessage(r io.Reader, v interface{}) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameBytes {
		return fmt.Errorf("frame too large: %d bytes", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("reading frame payload: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	return nil
}
