package tpm

// VirtualBackend is the delegate-based backend of spec §4.8, used for
// tests and software-simulated TPMs (swtpm, an in-process simulator). It
// has no build tag: unlike the hardware backends it is portable by
// construction.
type VirtualBackend struct {
	name     string
	delegate func(command []byte) ([]byte, error)
}

// NewVirtualBackend wraps delegate as a Backend named name.
func NewVirtualBackend(name string, delegate func(command []byte) ([]byte, error)) *VirtualBackend {
	return &VirtualBackend{name: name, delegate: delegate}
}

// Platform returns the backend's configured name.
func (b *VirtualBackend) Platform() string { return b.name }

// Submit forwards command to the delegate.
func (b *VirtualBackend) Submit(command []byte) ([]byte, error) {
	return b.delegate(command)
}

// Close is a no-op: the virtual backend owns no platform resources.
func (b *VirtualBackend) Close() error { return nil }
