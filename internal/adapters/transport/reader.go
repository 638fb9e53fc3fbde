// Package transport adapts blocking byte streams (serial devices, stdin,
// capture files, the simulator) to the non-blocking ports.ByteSource the
// poller drains.
package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bft-labs/seriallog/internal/domain"
)

// DefaultReadSize is the size of a single read from the device.
const DefaultReadSize = 4096

// ChunkReader pumps a blocking reader on its own goroutine and hands the
// chunks out through TryRead. When nobody calls TryRead the pump blocks,
// which stops reading the device.
type ChunkReader struct {
	r      io.ReadCloser
	chunks chan []byte
	quit   chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// NewChunkReader starts pumping r in chunks of up to readSize bytes.
func NewChunkReader(r io.ReadCloser, readSize int) *ChunkReader {
	if readSize <= 0 {
		readSize = DefaultReadSize
	}
	c := &ChunkReader{
		r:      r,
		chunks: make(chan []byte, 4),
		quit:   make(chan struct{}),
	}
	go c.pump(readSize)
	return c
}

func (c *ChunkReader) pump(size int) {
	defer close(c.chunks)
	buf := make([]byte, size)
	for {
		n, err := c.r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-c.quit:
				c.setErr(io.ErrClosedPipe)
				return
			}
		}
		if err != nil {
			c.setErr(err)
			return
		}
	}
}

func (c *ChunkReader) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// TryRead implements ports.ByteSource.
func (c *ChunkReader) TryRead() ([]byte, error) {
	select {
	case chunk, ok := <-c.chunks:
		if ok {
			return chunk, nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.err
	default:
		return nil, nil
	}
}

// Close stops the pump and closes the underlying reader.
func (c *ChunkReader) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.quit)
		err = c.r.Close()
	})
	return err
}

// Open opens the byte stream named by device: "-" is stdin, "sim" is a
// free-running Simulator, anything else is a file or device path.
func Open(device string) (io.ReadCloser, error) {
	switch device {
	case "":
		return nil, fmt.Errorf("%w: no device configured", domain.ErrTransportUnavailable)
	case "-":
		return io.NopCloser(os.Stdin), nil
	case "sim":
		return NewSimulator(SimulatorConfig{}), nil
	}
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Join(domain.ErrTransportUnavailable, err)
	}
	return f, nil
}
