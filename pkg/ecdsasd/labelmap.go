package ecdsasd

import (
	"strconv"
	"strings"

	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/multiformats/go-multibase"
)

const canonicalLabelPrefix = "c14n"

// CompressLabelMap converts the blank-node label map as it appears during
// proof derivation ("c14nN" -> "u<base64url>") into the wire form a
// DerivedProof carries (integer N -> raw HMAC bytes), per spec §4.7.
func CompressLabelMap(entries map[string]string) (map[int][]byte, error) {
	out := make(map[int][]byte, len(entries))
	for key, value := range entries {
		n, err := parseCanonicalLabel(key)
		if err != nil {
			return nil, err
		}
		raw, err := parseMultibaseValue(value)
		if err != nil {
			return nil, err
		}
		out[n] = raw
	}
	return out, nil
}

// DecompressLabelMap is the inverse of CompressLabelMap.
func DecompressLabelMap(compressed map[int][]byte) (map[string]string, error) {
	out := make(map[string]string, len(compressed))
	for n, raw := range compressed {
		encoded, err := multibase.Encode(multibase.Base64url, raw)
		if err != nil {
			return nil, errkind.FormatInvalid("multibase encoding failed: %s", err)
		}
		out[canonicalLabelPrefix+strconv.Itoa(n)] = encoded
	}
	return out, nil
}

func parseCanonicalLabel(label string) (int, error) {
	if !strings.HasPrefix(label, canonicalLabelPrefix) {
		return 0, errkind.FormatInvalid("label %q missing %q prefix", label, canonicalLabelPrefix)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(label, canonicalLabelPrefix))
	if err != nil {
		return 0, errkind.FormatInvalid("label %q has non-numeric suffix", label)
	}
	return n, nil
}

func parseMultibaseValue(value string) ([]byte, error) {
	_, raw, err := multibase.Decode(value)
	if err != nil {
		return nil, errkind.FormatInvalid("multibase value %q invalid: %s", value, err)
	}
	return raw, nil
}
