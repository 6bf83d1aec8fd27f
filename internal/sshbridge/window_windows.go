//go:build windows

package sshbridge

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

const (
	agentCopyDataMagic = 0x804E50BA
	wmCopyData         = 0x004A
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW  = user32.NewProc("FindWindowW")
	procSendMessageW = user32.NewProc("SendMessageW")
)

type pageantWindow struct {
	name *uint16
}

// NewAgentWindow returns the real FindWindow/SendMessage-backed
// notifier, targeting the window class and title both named Pageant.
func NewAgentWindow() AgentWindow {
	name, err := windows.UTF16PtrFromString("Pageant")
	if err != nil {
		panic(err)
	}
	return &pageantWindow{name: name}
}

// copyData mirrors COPYDATASTRUCT. dwData is ULONG_PTR on the wire but
// the Win32 headers declare it as a 32-bit value in practice; cbData
// and lpData are pointer-width.
type copyData struct {
	dwData uintptr
	cbData uintptr
	lpData uintptr
}

func (w *pageantWindow) Notify(slotName string) error {
	hwnd, _, _ := procFindWindowW.Call(
		uintptr(unsafe.Pointer(w.name)),
		uintptr(unsafe.Pointer(w.name)),
	)
	if hwnd == 0 {
		return bridgeerr.New(bridgeerr.Other, "can't contact gpg agent")
	}

	data := append([]byte(slotName), 0)
	cds := copyData{
		dwData: agentCopyDataMagic,
		cbData: uintptr(len(data)),
		lpData: uintptr(unsafe.Pointer(&data[0])),
	}

	ret, _, _ := procSendMessageW.Call(hwnd, wmCopyData, 0, uintptr(unsafe.Pointer(&cds)))
	if ret == 0 {
		return bridgeerr.New(bridgeerr.Other, "can't contact gpg agent")
	}
	return nil
}
