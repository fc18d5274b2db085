package camera

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

// MockOpener is an Opener that hands out canned frames.
// It counts opens, reads and closes so tests can check the device lifecycle.
type MockOpener struct {
	mu      sync.Mutex
	frames  []image.Image
	next    int
	openErr error
	readErr error
	failOn  map[int64]bool
	block   chan struct{}

	opens  atomic.Int64
	reads  atomic.Int64
	closes atomic.Int64

	widthReq  atomic.Int64
	heightReq atomic.Int64
}

// MockOption configures a MockOpener.
type MockOption func(*MockOpener)

// WithOpenError makes every Open fail with err.
func WithOpenError(err error) MockOption {
	return func(m *MockOpener) {
		m.openErr = err
	}
}

// WithReadError makes reads fail with err. reads lists the failing read
// numbers (1-based, counted across sessions); with none listed every read
// fails.
func WithReadError(err error, reads ...int) MockOption {
	return func(m *MockOpener) {
		m.readErr = err
		if len(reads) > 0 {
			m.failOn = make(map[int64]bool, len(reads))
			for _, n := range reads {
				m.failOn[int64(n)] = true
			}
		}
	}
}

// WithBlockingRead makes every Read wait until release is closed.
func WithBlockingRead(release chan struct{}) MockOption {
	return func(m *MockOpener) {
		m.block = release
	}
}

// NewMockOpener creates a mock that returns frames in order, cycling when it
// runs out. With no frames it serves a fixed 8x8 test pattern.
func NewMockOpener(frames []image.Image, opts ...MockOption) *MockOpener {
	if len(frames) == 0 {
		frames = []image.Image{PatternFrame(8, 8, 0)}
	}
	m := &MockOpener{frames: frames}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open implements Opener.
func (m *MockOpener) Open(device int) (Session, error) {
	m.opens.Add(1)
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &mockSession{m: m}, nil
}

// Opens returns how many times Open was called.
func (m *MockOpener) Opens() int { return int(m.opens.Load()) }

// Reads returns how many reads were attempted.
func (m *MockOpener) Reads() int { return int(m.reads.Load()) }

// Closes returns how many sessions were closed.
func (m *MockOpener) Closes() int { return int(m.closes.Load()) }

// RequestedResolution returns the last resolution passed to SetResolution.
func (m *MockOpener) RequestedResolution() (width, height int) {
	return int(m.widthReq.Load()), int(m.heightReq.Load())
}

type mockSession struct {
	m      *MockOpener
	closed bool
}

func (s *mockSession) SetResolution(width, height int) {
	s.m.widthReq.Store(int64(width))
	s.m.heightReq.Store(int64(height))
}

func (s *mockSession) Read() (image.Image, error) {
	if s.m.block != nil {
		<-s.m.block
	}
	n := s.m.reads.Add(1)
	if s.m.readErr != nil && (s.m.failOn == nil || s.m.failOn[n]) {
		return nil, s.m.readErr
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	img := s.m.frames[s.m.next%len(s.m.frames)]
	s.m.next++
	return img, nil
}

func (s *mockSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.m.closes.Add(1)
	return nil
}

// PatternFrame returns a deterministic RGBA gradient. Different variants give
// different pixels.
func PatternFrame(width, height int, variant uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*16) + variant,
				G: uint8(y*16) ^ variant,
				B: uint8(x+y) + variant*3,
				A: 255,
			})
		}
	}
	return img
}
