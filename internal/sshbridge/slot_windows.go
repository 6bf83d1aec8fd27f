//go:build windows

package sshbridge

import (
	"reflect"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

type winSlotFactory struct{}

// NewSlotFactory returns the real shared-memory-backed factory.
func NewSlotFactory() SlotFactory { return winSlotFactory{} }

func (winSlotFactory) New(mask byte) (Slot, error) {
	name := slotName(mask)
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Other, err, "encoding slot name")
	}

	handle, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		0,
		SlotCapacity,
		namePtr,
	)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Other, err, "creating shared memory mapping")
	}

	view, err := windows.MapViewOfFile(handle, windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(handle)
		return nil, bridgeerr.Wrap(bridgeerr.Other, err, "mapping shared memory view")
	}

	return &winSlot{name: name, handle: handle, view: view}, nil
}

type winSlot struct {
	name   string
	handle windows.Handle
	view   uintptr
}

func (s *winSlot) Bytes() []byte { return toSlice(s.view, SlotCapacity) }

func (s *winSlot) Name() string { return s.name }

func (s *winSlot) Close() error {
	b := s.Bytes()
	for i := range b {
		b[i] = 0
	}
	errUnmap := windows.UnmapViewOfFile(s.view)
	errClose := windows.CloseHandle(s.handle)
	if errUnmap != nil {
		return errUnmap
	}
	return errClose
}

// toSlice builds a fake slice header over the block of shared memory
// starting at addr, the same trick used to expose mapped Pageant
// request/response buffers as a []byte.
func toSlice(addr uintptr, size int) []byte {
	header := reflect.SliceHeader{
		Len:  size,
		Cap:  size,
		Data: addr,
	}
	return *(*[]byte)(unsafe.Pointer(&header))
}
