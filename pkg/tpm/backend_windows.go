//go:build windows

package tpm

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	tbsDLL                 = windows.NewLazySystemDLL("tbs.dll")
	procContextCreate       = tbsDLL.NewProc("Tbsi_Context_Create")
	procSubmitCommand       = tbsDLL.NewProc("Tbsip_Submit_Command")
	procContextClose        = tbsDLL.NewProc("Tbsip_Context_Close")
)

// contextParams2 mirrors TBS_CONTEXT_PARAMS2. Version=2, Flags=4 selects
// TBS_CONTEXT_VERSION_TWO with only the IncludeTpm20 bit set (spec §6).
type contextParams2 struct {
	Version uint32
	Flags   uint32
}

const (
	tbsContextVersionTwo = 2
	tbsFlagIncludeTpm20  = 4

	tbsLocalityZero           = 0
	tbsCommandPriorityNormal  = 200
	tbsSuccess                = 0
)

// WindowsBackend submits commands to the TPM via TBS (TPM Base Services),
// the Windows user-mode TPM API (spec §4.8/§6).
type WindowsBackend struct {
	mu  sync.Mutex
	ctx uintptr
}

// OpenWindowsBackend opens a TBS context scoped to TPM 2.0 devices.
func OpenWindowsBackend() (*WindowsBackend, error) {
	if err := tbsDLL.Load(); err != nil {
		return nil, fmt.Errorf("load tbs.dll: %w", err)
	}

	params := contextParams2{Version: tbsContextVersionTwo, Flags: tbsFlagIncludeTpm20}
	var ctx uintptr
	ret, _, _ := procContextCreate.Call(uintptr(unsafe.Pointer(&params)), uintptr(unsafe.Pointer(&ctx)))
	if ret != tbsSuccess {
		return nil, fmt.Errorf("Tbsi_Context_Create failed: 0x%08x", ret)
	}

	return &WindowsBackend{ctx: ctx}, nil
}

// Platform returns "windows".
func (b *WindowsBackend) Platform() string { return "windows" }

// Submit issues command at locality 0 with normal priority (spec §6).
func (b *WindowsBackend) Submit(command []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	response := make([]byte, maxResponseSize)
	responseLen := uint32(len(response))

	ret, _, _ := procSubmitCommand.Call(
		b.ctx,
		uintptr(tbsLocalityZero),
		uintptr(tbsCommandPriorityNormal),
		uintptr(unsafe.Pointer(&command[0])),
		uintptr(len(command)),
		uintptr(unsafe.Pointer(&response[0])),
		uintptr(unsafe.Pointer(&responseLen)),
	)
	if ret != tbsSuccess {
		return nil, fmt.Errorf("Tbsip_Submit_Command failed: 0x%08x", ret)
	}

	return response[:responseLen], nil
}

// Close releases the TBS context.
func (b *WindowsBackend) Close() error {
	ret, _, _ := procContextClose.Call(b.ctx)
	if ret != tbsSuccess {
		return fmt.Errorf("Tbsip_Context_Close failed: 0x%08x", ret)
	}
	return nil
}

// OpenPlatformBackend opens the Windows TBS backend.
func OpenPlatformBackend() (Backend, error) {
	return OpenWindowsBackend()
}
