package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLen bounds a single encoded record on the wire.
const MaxFrameLen = 64 * 1024

var (
	// ErrMalformed - the payload did not decode into a tagged record.
	ErrMalformed = errors.New("protocol: malformed record")

	// ErrFrameTooLarge - a record exceeded MaxFrameLen before its
	// terminator arrived. The decoder discards the rest of the line so
	// the stream stays aligned.
	ErrFrameTooLarge = errors.New("protocol: record exceeds frame limit")
)

// Marshal encodes m as a single newline-terminated record suitable for one
// write call.
func Marshal(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Op, err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes one record, with or without its trailing newline.
// A record without an op tag is malformed.
func Unmarshal(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(bytes.TrimSpace(data), &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Op == "" {
		return Message{}, fmt.Errorf("%w: missing op", ErrMalformed)
	}
	return m, nil
}

// Decoder reads newline-framed records from a stream. A single read from
// the underlying connection may hold zero, one, or several records; the
// decoder buffers partial lines until the terminator arrives.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next complete record. It returns ErrMalformed or
// ErrFrameTooLarge for recoverable payload problems and the underlying read
// error (EOF, timeout) when the stream is gone.
func (d *Decoder) Next() (Message, error) {
	for {
		line, err := d.readLine()
		if err != nil {
			return Message{}, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return Unmarshal(line)
	}
}

func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			if len(line) > MaxFrameLen {
				return nil, d.discardLine()
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(line) > MaxFrameLen {
			return nil, ErrFrameTooLarge
		}
		return line, nil
	}
}

// discardLine skips to the end of an oversized record.
func (d *Decoder) discardLine() error {
	for {
		_, err := d.r.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return err
		}
		return ErrFrameTooLarge
	}
}
