//go:build linux

package tpm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// linuxTpmPath is the Linux TPM resource-manager device node. Spec §6:
// "resource manager only; no fallback to /dev/tpm0" — talking to the raw
// device directly would let this process starve every other TPM client on
// the host of handles.
const linuxTpmPath = "/dev/tpmrm0"

// LinuxBackend submits commands to the kernel TPM resource manager via
// /dev/tpmrm0, opened defensively against symlink and TOCTOU attacks (spec
// §4.8).
type LinuxBackend struct {
	fd int
}

// OpenLinuxBackend opens the Linux TPM resource-manager device. The open
// uses O_NOFOLLOW so a symlink planted at the path cannot redirect the
// open to an attacker-controlled file, and O_CLOEXEC so the descriptor
// does not leak into child processes; after open, fstat verifies the
// descriptor is actually a character device, rejecting a regular file or
// FIFO an attacker swapped in between path resolution and open.
func OpenLinuxBackend() (*LinuxBackend, error) {
	fd, err := unix.Open(linuxTpmPath, unix.O_RDWR|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", linuxTpmPath, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fstat %s: %w", linuxTpmPath, err)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFCHR {
		unix.Close(fd)
		return nil, fmt.Errorf("%s is not a character device", linuxTpmPath)
	}

	return &LinuxBackend{fd: fd}, nil
}

// Platform returns "linux".
func (b *LinuxBackend) Platform() string { return "linux" }

// Submit writes command to the resource manager and reads back its
// response. The resource manager framing guarantees one command produces
// exactly one response read.
func (b *LinuxBackend) Submit(command []byte) ([]byte, error) {
	if _, err := unix.Write(b.fd, command); err != nil {
		return nil, fmt.Errorf("write to %s: %w", linuxTpmPath, err)
	}
	response := make([]byte, maxResponseSize)
	n, err := unix.Read(b.fd, response)
	if err != nil {
		return nil, fmt.Errorf("read from %s: %w", linuxTpmPath, err)
	}
	return response[:n], nil
}

// Close closes the device descriptor.
func (b *LinuxBackend) Close() error {
	return unix.Close(b.fd)
}

// OpenPlatformBackend opens the Linux resource-manager backend.
func OpenPlatformBackend() (Backend, error) {
	return OpenLinuxBackend()
}
