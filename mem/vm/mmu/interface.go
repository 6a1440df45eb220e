package mmu

// FrameStore is the physical store abstraction the MMU depends on. It is
// implemented by physmem.Storage, for both RAM and swap.
//
//go:generate mockgen -destination "mock_framestore_test.go" -package $GOPACKAGE -write_package_comment=false -source interface.go
type FrameStore interface {
	Name() string
	FrameSize() uint64
	NumFrames() uint64
	GetFreeFrame() (uint64, error)
	ReleaseFrame(fpn uint64)
	Read(addr uint64) (byte, error)
	Write(addr uint64, data byte) error
	ReadFrame(fpn uint64) ([]byte, error)
	WriteFrame(fpn uint64, data []byte) error
}
