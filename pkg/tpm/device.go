package tpm

import (
	"sync"
	"time"

	"github.com/dc4eu/vc-cryptocore/pkg/clock"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
)

// maxResponseSize is the maximum TPM response size enforced per spec §6.
const maxResponseSize = 65536

// responseHeaderSize is the fixed TPM response header layout: 2-byte tag,
// 4-byte size, 4-byte response code (spec §6).
const responseHeaderSize = 10

// Response is a single TPM response, backed by a pooled buffer released by
// the caller once consumed (spec §3 TpmResponse: "bytes zeroed on
// release").
type Response struct {
	buf *sensitivebuf.Buffer
}

// Bytes returns the response's content view. It must not be retained past
// Release.
func (r *Response) Bytes() []byte { return r.buf.Bytes() }

// Release zeroizes and returns the response's buffer to the pool.
func (r *Response) Release() { r.buf.Release() }

// Exchange is one recorded command/response pair delivered to observers
// (spec §3 TpmExchange). Start/End use a monotonic source (time.Now, not
// the injected clock.Source) since they measure elapsed duration, not wall
// time a test would want to control.
type Exchange struct {
	Start    time.Time
	End      time.Time
	Command  []byte
	Response []byte
}

// Observer receives one Exchange per successful submit, in submit
// completion order for a given Device (spec §5 "observer notification
// order follows submit completion order").
type Observer func(Exchange)

// Backend performs the platform-specific command/response exchange. Submit
// must not retry; the Device layer above owns the permanent-failure latch
// and retry policy (there is none — spec §7 "the TPM transport never
// retries automatically").
type Backend interface {
	// Platform names the backend for use in TransportFailure.Platform.
	Platform() string
	// Submit sends command and returns the raw response bytes (including
	// the 10-byte header) or an error describing a platform I/O failure.
	Submit(command []byte) ([]byte, error)
	// Close releases any platform resources held by the backend.
	Close() error
}

// Device is the cross-platform TPM transport of spec §4.8: single submit
// operation, permanent-failure latch, and an observer subscription surface
// copying command/response bytes only when at least one observer is
// registered.
type Device struct {
	backend Backend
	clock   clock.Source
	pool    *sensitivebuf.Pool

	mu        sync.Mutex
	observers map[int]Observer
	nextID    int
	closed    bool

	latchOnce sync.Once
	latched   *TransportFailure
}

// NewDevice wraps backend in a Device using pool for response buffers. The
// Device stores src; Exchange timestamps come from time.Now, not from src.
func NewDevice(backend Backend, pool *sensitivebuf.Pool, src clock.Source) *Device {
	return &Device{
		backend:   backend,
		clock:     src,
		pool:      pool,
		observers: make(map[int]Observer),
	}
}

// Subscribe registers obs and returns a token to pass to Unsubscribe.
// Observers are called in the order they subscribed.
// Subscription is race-free against concurrent dispatch: Submit takes a
// private snapshot of the observer list before invoking any of them.
func (d *Device) Subscribe(obs Observer) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.observers[id] = obs
	return id
}

// Unsubscribe removes the observer registered under token. O(n) in the
// observer count, race-free with any in-flight dispatch started before the
// call returns.
func (d *Device) Unsubscribe(token int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.observers, token)
}

func (d *Device) snapshotObservers() []Observer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.observers) == 0 {
		return nil
	}
	out := make([]Observer, 0, len(d.observers))
	for id := 0; id < d.nextID; id++ {
		if obs, ok := d.observers[id]; ok {
			out = append(out, obs)
		}
	}
	return out
}

// Submit sends command to the platform backend and returns its response as
// a three-state Result. Once any submit observes a transport failure, the
// failure latches permanently: every subsequent Submit returns the
// identical error without touching the backend again (spec §4.8 "Permanent
// failure latch").
func (d *Device) Submit(command []byte) Result[*Response] {
	if failure := d.latchedFailure(); failure != nil {
		return TransportErrorResult[*Response](*failure)
	}

	start := time.Now()
	raw, err := d.backend.Submit(command)
	end := time.Now()
	if err != nil {
		failure := TransportFailure{Platform: d.backend.Platform(), Reason: err.Error()}
		d.latch(failure)
		return TransportErrorResult[*Response](failure)
	}

	if len(raw) < responseHeaderSize {
		failure := TransportFailure{Platform: d.backend.Platform(), Reason: "response shorter than header"}
		d.latch(failure)
		return TransportErrorResult[*Response](failure)
	}
	if len(raw) > maxResponseSize {
		failure := TransportFailure{Platform: d.backend.Platform(), Reason: "response exceeds maximum size"}
		d.latch(failure)
		return TransportErrorResult[*Response](failure)
	}

	code := ResponseCode(uint32(raw[6])<<24 | uint32(raw[7])<<16 | uint32(raw[8])<<8 | uint32(raw[9]))

	observers := d.snapshotObservers()
	if len(observers) > 0 {
		cmdCopy := append([]byte(nil), command...)
		respCopy := append([]byte(nil), raw...)
		exchange := Exchange{Start: start, End: end, Command: cmdCopy, Response: respCopy}
		for _, obs := range observers {
			obs(exchange)
		}
	}

	if !code.IsSuccess() {
		return TpmErrorResult[*Response](code)
	}

	buf, err := d.pool.Rent(len(raw), sensitivebuf.Tag{Purpose: sensitivebuf.PurposeTransport, Material: sensitivebuf.SemanticsDirect})
	if err != nil {
		failure := TransportFailure{Platform: d.backend.Platform(), Reason: "buffer allocation failed: " + err.Error()}
		d.latch(failure)
		return TransportErrorResult[*Response](failure)
	}
	copy(buf.Bytes(), raw)

	return Success(&Response{buf: buf})
}

func (d *Device) latch(failure TransportFailure) {
	d.latchOnce.Do(func() {
		d.mu.Lock()
		d.latched = &failure
		d.mu.Unlock()
	})
}

func (d *Device) latchedFailure() *TransportFailure {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latched
}

// Close releases the platform backend exactly once and drops any remaining
// observers without calling them; they receive no completion notice.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.observers = nil
	d.mu.Unlock()
	return d.backend.Close()
}
