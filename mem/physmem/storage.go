// Package physmem provides the physical stores that back virtual memory. A
// store is used both as main memory (RAM) and as a swap device.
package physmem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrOutOfFrames is returned when a store has no free frame left.
	ErrOutOfFrames = errors.New("no free frame")

	// ErrOutOfBounds is returned when an address is beyond the capacity of
	// a store.
	ErrOutOfBounds = errors.New("address out of bounds")
)

// A Storage is a fixed-size byte array divided into frames, together with
// the list of frames that are not owned by anyone.
//
// Frames are handed out in ascending order initially. Released frames are
// appended to the end of the free list. Releasing a frame twice corrupts the
// free list; callers must track ownership.
type Storage struct {
	sync.Mutex

	name       string
	frameSize  uint64
	capacity   uint64
	data       []byte
	freeFrames []uint64
}

// NewStorage creates a store with the given capacity in bytes. The capacity
// must be a positive multiple of the frame size.
func NewStorage(name string, capacity, frameSize uint64) *Storage {
	if frameSize == 0 {
		panic("frame size must be positive")
	}

	if capacity == 0 || capacity%frameSize != 0 {
		panic(fmt.Sprintf(
			"capacity %d is not a positive multiple of frame size %d",
			capacity, frameSize))
	}

	s := &Storage{
		name:      name,
		frameSize: frameSize,
		capacity:  capacity,
		data:      make([]byte, capacity),
	}

	numFrames := capacity / frameSize
	s.freeFrames = make([]uint64, 0, numFrames)
	for i := uint64(0); i < numFrames; i++ {
		s.freeFrames = append(s.freeFrames, i)
	}

	return s
}

// Name returns the name of the store.
func (s *Storage) Name() string {
	return s.name
}

// FrameSize returns the number of bytes in a frame.
func (s *Storage) FrameSize() uint64 {
	return s.frameSize
}

// Capacity returns the number of bytes in the store.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// NumFrames returns the total number of frames in the store.
func (s *Storage) NumFrames() uint64 {
	return s.capacity / s.frameSize
}

// NumFreeFrames returns the number of frames in the free list.
func (s *Storage) NumFreeFrames() int {
	s.Lock()
	defer s.Unlock()

	return len(s.freeFrames)
}

// GetFreeFrame removes the head of the free list and returns it.
func (s *Storage) GetFreeFrame() (uint64, error) {
	s.Lock()
	defer s.Unlock()

	if len(s.freeFrames) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrOutOfFrames, s.name)
	}

	fpn := s.freeFrames[0]
	s.freeFrames = s.freeFrames[1:]

	return fpn, nil
}

// ReleaseFrame puts a frame back to the free list.
func (s *Storage) ReleaseFrame(fpn uint64) {
	if fpn >= s.NumFrames() {
		panic(fmt.Sprintf("frame %d does not exist in %s", fpn, s.name))
	}

	s.Lock()
	defer s.Unlock()

	s.freeFrames = append(s.freeFrames, fpn)
}

// Read returns the byte at the given physical address.
func (s *Storage) Read(addr uint64) (byte, error) {
	if addr >= s.capacity {
		return 0, s.outOfBounds(addr)
	}

	s.Lock()
	defer s.Unlock()

	return s.data[addr], nil
}

// Write stores a byte at the given physical address.
func (s *Storage) Write(addr uint64, data byte) error {
	if addr >= s.capacity {
		return s.outOfBounds(addr)
	}

	s.Lock()
	defer s.Unlock()

	s.data[addr] = data

	return nil
}

// ReadFrame returns a copy of the content of a frame.
func (s *Storage) ReadFrame(fpn uint64) ([]byte, error) {
	base, err := s.frameBase(fpn)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()

	res := make([]byte, s.frameSize)
	copy(res, s.data[base:base+s.frameSize])

	return res, nil
}

// WriteFrame overwrites a frame. Data shorter than a frame is zero-padded.
func (s *Storage) WriteFrame(fpn uint64, data []byte) error {
	base, err := s.frameBase(fpn)
	if err != nil {
		return err
	}

	if uint64(len(data)) > s.frameSize {
		return fmt.Errorf("%w: %d bytes do not fit in a frame of %s",
			ErrOutOfBounds, len(data), s.name)
	}

	s.Lock()
	defer s.Unlock()

	frame := s.data[base : base+s.frameSize]
	n := copy(frame, data)
	clear(frame[n:])

	return nil
}

func (s *Storage) frameBase(fpn uint64) (uint64, error) {
	if fpn >= s.NumFrames() {
		return 0, fmt.Errorf("%w: frame %d of %s",
			ErrOutOfBounds, fpn, s.name)
	}

	return fpn * s.frameSize, nil
}

func (s *Storage) outOfBounds(addr uint64) error {
	return fmt.Errorf("%w: address 0x%x beyond %s capacity 0x%x",
		ErrOutOfBounds, addr, s.name, s.capacity)
}

// Dump writes the non-zero bytes of every frame that is not in the free
// list. The store is unlocked before w is written to.
func (s *Storage) Dump(w io.Writer) error {
	buf := new(bytes.Buffer)
	s.render(buf)

	_, err := buf.WriteTo(w)

	return err
}

func (s *Storage) render(buf *bytes.Buffer) {
	s.Lock()
	defer s.Unlock()

	free := make(map[uint64]bool, len(s.freeFrames))
	for _, fpn := range s.freeFrames {
		free[fpn] = true
	}

	fmt.Fprintf(buf, "===== %s: %d/%d frames in use =====\n",
		s.name, s.NumFrames()-uint64(len(s.freeFrames)), s.NumFrames())

	for fpn := uint64(0); fpn < s.NumFrames(); fpn++ {
		if !free[fpn] {
			s.renderFrame(buf, fpn)
		}
	}
}

func (s *Storage) renderFrame(buf *bytes.Buffer, fpn uint64) {
	base := fpn * s.frameSize

	fmt.Fprintf(buf, "frame %d [0x%08x-0x%08x]\n",
		fpn, base, base+s.frameSize-1)

	for addr := base; addr < base+s.frameSize; addr++ {
		if s.data[addr] != 0 {
			fmt.Fprintf(buf, "\t0x%08x: %02x\n", addr, s.data[addr])
		}
	}
}
