package sdcwt

import (
	"encoding/base64"
	"strconv"
	"strings"

	vccbor "github.com/dc4eu/vc-cryptocore/pkg/cbor"
)

func base64URLDigest(digest []byte) string {
	return base64.RawURLEncoding.EncodeToString(digest)
}

// Reserved payload claim keys marking redaction state within an SD-CWT
// payload (distinct from the COSE unprotected-header key carrying the
// disclosure bytes themselves, SdClaimsHeader=17 in package cose). At any
// map level, SdDigestsClaimKey names an array of digests for claims
// redacted at that level; a single-entry map {SdDigestsClaimKey: digest}
// standing in for a redacted array element marks that element as
// redacted. SdAlgClaimKey names the hash algorithm used for those digests.
const (
	SdDigestsClaimKey int64 = 17
	SdAlgClaimKey     int64 = 18
)

// PathLattice is the result of walking an SD-CWT payload against its
// disclosure set (spec §4.6 "path lattice extraction").
type PathLattice struct {
	// AllPaths are every path reachable in the payload, including ones
	// injected by a disclosed claim.
	AllPaths []string
	// MandatoryPaths are AllPaths minus the paths injected by disclosures:
	// the claims that are always present regardless of what is disclosed.
	MandatoryPaths []string
	// DisclosurePaths maps each disclosure's Base64URL digest to the path
	// it occupies (or would occupy once disclosed).
	DisclosurePaths map[string]string
}

// ExtractPaths walks payload depth-first, skipping SdDigestsClaimKey and
// SdAlgClaimKey, and resolves digest placeholders against disclosures
// using alg for digest matching.
func ExtractPaths(payload vccbor.Value, disclosures []Disclosure, alg HashAlg) (*PathLattice, error) {
	byDigest := make(map[string]Disclosure, len(disclosures))
	for _, d := range disclosures {
		digest, err := d.DigestBase64URL(alg)
		if err != nil {
			return nil, err
		}
		byDigest[digest] = d
	}

	lattice := &PathLattice{DisclosurePaths: make(map[string]string)}
	walker := &pathWalker{lattice: lattice, byDigest: byDigest}
	if err := walker.walk(payload, ""); err != nil {
		return nil, err
	}
	return lattice, nil
}

type pathWalker struct {
	lattice  *PathLattice
	byDigest map[string]Disclosure
}

func joinPath(parent, segment string) string {
	return parent + "/" + escapePathSegment(segment)
}

// escapePathSegment applies the same "~" -> "~0", "/" -> "~1" escaping the
// teacher's JSON Pointer helper (pkg/vc20/crypto/ecdsa-sd/selection.go)
// uses, so paths remain valid JSON-Pointer-like references.
func escapePathSegment(segment string) string {
	segment = strings.ReplaceAll(segment, "~", "~0")
	segment = strings.ReplaceAll(segment, "/", "~1")
	return segment
}

func (w *pathWalker) walk(v vccbor.Value, path string) error {
	switch v.Kind {
	case vccbor.KindMap:
		return w.walkMap(v.Map, path)
	case vccbor.KindArray:
		return w.walkArray(v.Array, path)
	default:
		if path != "" {
			w.lattice.MandatoryPaths = append(w.lattice.MandatoryPaths, path)
			w.lattice.AllPaths = append(w.lattice.AllPaths, path)
		}
		return nil
	}
}

func (w *pathWalker) walkMap(m *vccbor.Map, path string) error {
	for _, e := range m.Entries() {
		if keyInt, ok := e.Key.AsInt64(); ok && (keyInt == SdDigestsClaimKey || keyInt == SdAlgClaimKey) {
			if keyInt == SdDigestsClaimKey {
				if err := w.resolveDigestArray(e.Value, path); err != nil {
					return err
				}
			}
			continue
		}

		keyStr := keyToSegment(e.Key)
		childPath := joinPath(path, keyStr)
		w.lattice.MandatoryPaths = append(w.lattice.MandatoryPaths, childPath)
		w.lattice.AllPaths = append(w.lattice.AllPaths, childPath)
		if err := w.walk(e.Value, childPath); err != nil {
			return err
		}
	}
	return nil
}

func (w *pathWalker) walkArray(items []vccbor.Value, path string) error {
	for i, item := range items {
		childPath := joinPath(path, strconv.Itoa(i))
		if digest, isMarker := redactedElementDigest(item); isMarker {
			w.lattice.AllPaths = append(w.lattice.AllPaths, childPath)
			w.lattice.DisclosurePaths[digest] = childPath
			continue
		}
		w.lattice.MandatoryPaths = append(w.lattice.MandatoryPaths, childPath)
		w.lattice.AllPaths = append(w.lattice.AllPaths, childPath)
		if err := w.walk(item, childPath); err != nil {
			return err
		}
	}
	return nil
}

// resolveDigestArray handles a map-level SdDigestsClaimKey entry: each
// digest names a property disclosure whose path is path/<name>.
func (w *pathWalker) resolveDigestArray(v vccbor.Value, parentPath string) error {
	if v.Kind != vccbor.KindArray {
		return nil
	}
	for _, item := range v.Array {
		digestBytes, ok := item.AsBytes()
		if !ok {
			continue
		}
		digest := base64URLDigest(digestBytes)
		disclosure, found := w.byDigest[digest]
		if !found || disclosure.Name == nil {
			continue
		}
		childPath := joinPath(parentPath, *disclosure.Name)
		w.lattice.AllPaths = append(w.lattice.AllPaths, childPath)
		w.lattice.DisclosurePaths[digest] = childPath
	}
	return nil
}

// redactedElementDigest reports whether v is a single-entry map
// {SdDigestsClaimKey: digest_bytes} marking a redacted array element.
func redactedElementDigest(v vccbor.Value) (string, bool) {
	if v.Kind != vccbor.KindMap || v.Map.Len() != 1 {
		return "", false
	}
	key := v.Map.Keys()[0]
	keyInt, ok := key.AsInt64()
	if !ok || keyInt != SdDigestsClaimKey {
		return "", false
	}
	value, _ := v.Map.Get(key)
	digestBytes, ok := value.AsBytes()
	if !ok {
		return "", false
	}
	return base64URLDigest(digestBytes), true
}

func keyToSegment(key vccbor.Value) string {
	if i, ok := key.AsInt64(); ok {
		return strconv.FormatInt(i, 10)
	}
	if s, ok := key.AsText(); ok {
		return s
	}
	return key.String()
}
