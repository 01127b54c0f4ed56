//go:build !linux && !windows

package tpm

import "errors"

// ErrPlatformUnsupported is returned by OpenPlatformBackend on platforms
// with no hardware TPM backend in this package (only Linux and Windows
// are implemented; spec §4.8 names exactly those two plus the virtual
// backend).
var ErrPlatformUnsupported = errors.New("tpm: no hardware backend for this platform")

// OpenPlatformBackend always fails on platforms other than Linux and
// Windows. Use NewVirtualBackend for tests and simulators.
func OpenPlatformBackend() (Backend, error) {
	return nil, ErrPlatformUnsupported
}
