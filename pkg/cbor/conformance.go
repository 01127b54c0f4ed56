package cbor

// Conformance selects the reader/writer's strictness, per spec §4.4.
type Conformance int

const (
	// Canonical forbids indefinite-length arrays/maps, sorts map keys by
	// their canonical byte encoding, uses shortest integer/float encoding,
	// and forbids duplicate map keys.
	Canonical Conformance = iota
	// Lax accepts indefinite lengths when Options.AllowIndefiniteLength is
	// true, and never silently upgrades lax input into canonical output.
	Lax
)

// Options configures a Reader or Writer.
type Options struct {
	// AllowIndefiniteLength permits indefinite-length arrays/maps when
	// Conformance is Lax. Ignored (and always false) under Canonical.
	AllowIndefiniteLength bool
}
