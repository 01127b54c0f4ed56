// Package pki parses PEM-encoded certificates and private keys off disk.
// Key material leaves this package as raw scalars rather than bare
// crypto.PrivateKey/x509.Certificate values, so the sensitive-buffer
// handling the key factory requires (spec §4.3.1) is this package's own
// concern instead of being reassembled by every caller that loads a PEM
// file.
package pki

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
)

// ParsedPrivateKey is the raw ECDSA scalar extracted from a PEM file, plus
// the registry algorithm name its curve implies. Raw is sized to the curve
// (32/48/66 bytes) and ready for a sensitive buffer pool to take ownership
// of via copy.
type ParsedPrivateKey struct {
	Algorithm string
	Raw       []byte
}

// ParsedPublicKey is the raw uncompressed EC point (0x04||X||Y) extracted
// from a certificate's public key, plus its registry algorithm name.
type ParsedPublicKey struct {
	Algorithm string
	Raw       []byte
}

func algorithmForCurve(bitSize int) (string, error) {
	switch bitSize {
	case 256:
		return "ES256", nil
	case 384:
		return "ES384", nil
	case 521:
		return "ES512", nil
	default:
		return "", errkind.Unsupported("unsupported ECDSA curve bit size %d", bitSize)
	}
}

func ParseX509CertificateFromFile(path string) (*x509.Certificate, []*x509.Certificate, error) {
	pemData, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}

	block, rest := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, nil, errors.New("certificate decoding error")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, err
	}

	storage := map[int]*x509.Certificate{}
	if len(rest) > 0 {
		if err := parseChain(rest, 0, storage); err != nil {
			return nil, nil, err
		}
	}

	chain := []*x509.Certificate{}
	chain = append(chain, cert)
	for _, v := range storage {
		chain = append(chain, v)
	}

	return cert, chain, nil
}

func parseChain(rest []byte, n int, storage map[int]*x509.Certificate) error {
	n++
	block, r := pem.Decode(rest)
	if block == nil {
		return nil
	}

	if block.Type != "CERTIFICATE" {
		return errors.New("certificate type error")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return err
	}

	storage[n] = cert

	if len(r) > 0 {
		if err := parseChain(r, n, storage); err != nil {
			return err
		}
	}

	return nil
}

// ParsePrivateKeyFromFile decodes a PEM-encoded private key (PKCS#8, SEC1,
// or PKCS#1) and returns its raw ECDSA scalar. Only ECDSA keys are
// supported; RSA keys decode but are rejected since nothing in the
// registry signs with them.
func ParsePrivateKeyFromFile(path string) (ParsedPrivateKey, error) {
	key, err := parseKeyFromFile(path)
	if err != nil {
		return ParsedPrivateKey{}, err
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return ParsedPrivateKey{}, errkind.Unsupported("%s: only ECDSA private keys are supported", path)
	}
	algorithm, err := algorithmForCurve(priv.Curve.Params().BitSize)
	if err != nil {
		return ParsedPrivateKey{}, err
	}
	keyLen := (priv.Curve.Params().BitSize + 7) / 8
	raw := make([]byte, keyLen)
	priv.D.FillBytes(raw)
	return ParsedPrivateKey{Algorithm: algorithm, Raw: raw}, nil
}

// ParsePublicKeyFromCertificateFile decodes a PEM certificate and returns
// its public key as a raw uncompressed EC point. Only ECDSA keys are
// supported.
func ParsePublicKeyFromCertificateFile(path string) (ParsedPublicKey, error) {
	cert, _, err := ParseX509CertificateFromFile(path)
	if err != nil {
		return ParsedPublicKey{}, err
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return ParsedPublicKey{}, errkind.Unsupported("%s: only ECDSA public keys are supported", path)
	}
	algorithm, err := algorithmForCurve(pub.Curve.Params().BitSize)
	if err != nil {
		return ParsedPublicKey{}, err
	}
	keyLen := (pub.Curve.Params().BitSize + 7) / 8
	raw := make([]byte, 1+2*keyLen)
	raw[0] = 0x04
	pub.X.FillBytes(raw[1 : 1+keyLen])
	pub.Y.FillBytes(raw[1+keyLen:])
	return ParsedPublicKey{Algorithm: algorithm, Raw: raw}, nil
}

func parseKeyFromFile(path string) (any, error) {
	pemData, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	block, rest := pem.Decode([]byte(pemData))
	if block == nil || len(rest) > 0 {
		return nil, errors.New("failed to decode PEM block from file")
	}

	// Support multiple key formats
	switch block.Type {
	case "PRIVATE KEY":
		// PKCS#8 format
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 private key: %w", err)
		}
		return key, nil

	case "EC PRIVATE KEY":
		// SEC1/EC format
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC private key: %w", err)
		}
		return key, nil

	case "RSA PRIVATE KEY":
		// PKCS#1 RSA format
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}

func Base64EncodeCertificate(cert *x509.Certificate) string {
	reply := base64.RawStdEncoding.EncodeToString(cert.Raw)
	return reply
}
