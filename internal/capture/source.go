package capture

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// Device-acquisition failures. Neither is retried automatically; the
// operator must restart the loop after fixing the device.
var (
	ErrDeviceAccessDenied = errors.New("capture device access denied")
	ErrNoDeviceFound      = errors.New("no capture device found")
)

// FrameSource produces decoded token strings from a capture device, one
// value per video frame that yielded a decode. The channel is closed
// when the device stops producing frames.
type FrameSource interface {
	Open(ctx context.Context) error
	Frames() <-chan string
	Close() error
}

// LineSource adapts a line-oriented decoder feed (one decoded token per
// line, as emitted by a tethered barcode reader or a decoder process)
// to the FrameSource interface.
type LineSource struct {
	r      io.Reader
	frames chan string
}

// NewLineSource creates a frame source reading from r.
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

// Open starts draining the feed. It fails with ErrNoDeviceFound when no
// reader is attached.
func (s *LineSource) Open(ctx context.Context) error {
	if s.r == nil {
		return ErrNoDeviceFound
	}

	s.frames = make(chan string)
	go func() {
		defer close(s.frames)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case s.frames <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Frames returns the decoded token stream.
func (s *LineSource) Frames() <-chan string {
	return s.frames
}

// Close releases the source. The drain goroutine exits with the feed.
func (s *LineSource) Close() error {
	if closer, ok := s.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
