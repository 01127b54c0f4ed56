// Package sensitivebuf implements the sensitive buffer pool described in
// spec §4.1: pooled byte buffers tagged with a Purpose and MaterialSemantics,
// zeroized on release, tolerant of release from any goroutine.
//
// There is no third-party pooled-buffer library anywhere in the reference
// corpus (the teacher and the rest of the example pack reach for sync.Pool
// nowhere either — buffer pooling here is a new leaf concern this spec adds
// that the corpus never needed), so the pool is built directly on
// sync.Pool, the standard, idiomatic primitive for exactly this shape of
// problem.
package sensitivebuf

import "sync"

// Purpose states what a buffer is used for; required for cross-component
// routing per spec §4.1.
type Purpose string

const (
	PurposeNonce         Purpose = "nonce"
	PurposeAuth          Purpose = "auth"
	PurposeDigest        Purpose = "digest"
	PurposeTransport     Purpose = "transport"
	PurposeVerification  Purpose = "verification"
	PurposeEncryption    Purpose = "encryption"
	PurposeSigning       Purpose = "signing"
)

// MaterialSemantics states where the material actually lives.
type MaterialSemantics string

const (
	SemanticsDirect     MaterialSemantics = "direct"
	SemanticsTpmHandle  MaterialSemantics = "tpm_handle"
	SemanticsHsmRef     MaterialSemantics = "hsm_reference"
)

// Tag is an immutable set of (kind, value) pairs attached at buffer
// creation. Purpose and MaterialSemantics are always present; callers may
// not mutate a Tag after creation.
type Tag struct {
	Purpose  Purpose
	Material MaterialSemantics
}

// Buffer is an exclusively owned byte buffer. Release zeroizes the entire
// underlying storage (including any length-prefix scratch beyond the
// reported length) before returning it to the pool.
type Buffer struct {
	tag     Tag
	storage []byte
	length  int
	pool    *Pool
	freed   bool
}

// Tag returns the buffer's immutable tag.
func (b *Buffer) Tag() Tag { return b.tag }

// Bytes returns the buffer's content view, sized to the requested length.
// The returned slice aliases the buffer's storage: it must not be retained
// past Release.
func (b *Buffer) Bytes() []byte {
	if b.freed {
		return nil
	}
	return b.storage[:b.length]
}

// Len reports the buffer's requested length.
func (b *Buffer) Len() int { return b.length }

// Release zeroizes the full underlying storage and returns it to the pool.
// Safe to call from any goroutine, and safe to call more than once.
func (b *Buffer) Release() {
	if b.freed {
		return
	}
	for i := range b.storage {
		b.storage[i] = 0
	}
	b.freed = true
	b.pool.put(b.storage)
}

// Pool is a process-wide, fully concurrent pool of byte buffers bucketed by
// capacity class. The zero value is an empty pool ready for use; New
// returns one.
type Pool struct {
	buckets sync.Map // capacity class (int) -> *sync.Pool
}

// New constructs an empty Pool.
func New() *Pool {
	return &Pool{}
}

// bucketSize rounds length up to a capacity class so that buffers of
// similar size are reused across Rent calls instead of each size
// allocating a fresh slab.
func bucketSize(length int) int {
	if length <= 0 {
		return 0
	}
	size := 64
	for size < length {
		size *= 2
	}
	return size
}

func (p *Pool) bucket(size int) *sync.Pool {
	if v, ok := p.buckets.Load(size); ok {
		return v.(*sync.Pool)
	}
	capturedSize := size
	newPool := &sync.Pool{
		New: func() any {
			return make([]byte, capturedSize)
		},
	}
	actual, _ := p.buckets.LoadOrStore(size, newPool)
	return actual.(*sync.Pool)
}

func (p *Pool) put(storage []byte) {
	size := cap(storage)
	if size == 0 {
		return
	}
	p.bucket(size).Put(storage[:size])
}

// Rent acquires a buffer of at least length bytes tagged with tag. Renting
// zero length returns an empty, still-owned buffer rather than nil.
// Allocation failure (only possible via a future bounded-pool variant)
// surfaces as an error rather than a silent truncation; today Rent never
// fails because sync.Pool's New always succeeds or panics on OOM, which is
// not a recoverable condition to model as an error here.
func (p *Pool) Rent(length int, tag Tag) (*Buffer, error) {
	if length < 0 {
		length = 0
	}
	size := bucketSize(length)
	var storage []byte
	if size == 0 {
		storage = make([]byte, 0)
	} else {
		storage = p.bucket(size).Get().([]byte)
		if cap(storage) < size {
			storage = make([]byte, size)
		}
		storage = storage[:size]
		for i := range storage {
			storage[i] = 0
		}
	}
	return &Buffer{tag: tag, storage: storage, length: length, pool: p}, nil
}
