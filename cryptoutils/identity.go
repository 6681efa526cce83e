package cryptoutils

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/D4ZA1/Cryopay/interfaces"
)

const (
	keyTypeEC   = "EC"
	curveP256   = "P-256"
	coordLength = 32
)

// KeyPair is a P-256 signing key. The private half only exists for the
// holder's own identity and is exported explicitly via PrivateRecord.
type KeyPair struct {
	priv *ecdsa.PrivateKey
}

// GenerateKeyPair creates a new P-256 key from the system random source.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), randReader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// NewKeyPair wraps an existing P-256 private key.
func NewKeyPair(priv *ecdsa.PrivateKey) (*KeyPair, error) {
	if priv == nil || priv.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: not a P-256 key", interfaces.ErrInvalidKeyMaterial)
	}
	return &KeyPair{priv: priv}, nil
}

// PrivateKey exposes the underlying key for PEM export.
func (k *KeyPair) PrivateKey() *ecdsa.PrivateKey {
	return k.priv
}

// PublicKey returns the public half.
func (k *KeyPair) PublicKey() *ecdsa.PublicKey {
	return &k.priv.PublicKey
}

// PublicRecord exports the public key in JWK form.
func (k *KeyPair) PublicRecord() interfaces.PublicKeyRecord {
	return publicRecord(&k.priv.PublicKey)
}

// PrivateRecord exports the full key in JWK form. Callers are expected to
// encrypt the result immediately.
func (k *KeyPair) PrivateRecord() interfaces.PrivateKeyRecord {
	pub := publicRecord(&k.priv.PublicKey)
	ext := true
	return interfaces.PrivateKeyRecord{
		Kty:    pub.Kty,
		Crv:    pub.Crv,
		X:      pub.X,
		Y:      pub.Y,
		D:      EncodeBase64URL(k.priv.D.FillBytes(make([]byte, coordLength))),
		KeyOps: []string{"sign"},
		Ext:    &ext,
	}
}

// Thumbprint of the public half.
func (k *KeyPair) Thumbprint() interfaces.Thumbprint {
	tp, _ := Thumbprint(k.PublicRecord())
	return tp
}

func publicRecord(pub *ecdsa.PublicKey) interfaces.PublicKeyRecord {
	ext := true
	return interfaces.PublicKeyRecord{
		Kty:    keyTypeEC,
		Crv:    curveP256,
		X:      EncodeBase64URL(pub.X.FillBytes(make([]byte, coordLength))),
		Y:      EncodeBase64URL(pub.Y.FillBytes(make([]byte, coordLength))),
		KeyOps: []string{"verify"},
		Ext:    &ext,
	}
}

// ParsePublicRecord imports a JWK public key, rejecting anything that is not
// a valid point on P-256.
func ParsePublicRecord(rec interfaces.PublicKeyRecord) (*ecdsa.PublicKey, error) {
	point, err := uncompressedPoint(rec.Kty, rec.Crv, rec.X, rec.Y)
	if err != nil {
		return nil, err
	}
	if _, err := ecdh.P256().NewPublicKey(point); err != nil {
		return nil, fmt.Errorf("%w: point not on curve", interfaces.ErrInvalidKeyMaterial)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(point[1 : 1+coordLength]),
		Y:     new(big.Int).SetBytes(point[1+coordLength:]),
	}, nil
}

// ParsePrivateRecord imports a JWK private key and checks that d matches (x, y).
func ParsePrivateRecord(rec interfaces.PrivateKeyRecord) (*KeyPair, error) {
	point, err := uncompressedPoint(rec.Kty, rec.Crv, rec.X, rec.Y)
	if err != nil {
		return nil, err
	}

	d, err := DecodeBase64URL(rec.D)
	if err != nil || len(d) != coordLength {
		return nil, fmt.Errorf("%w: bad private scalar", interfaces.ErrInvalidKeyMaterial)
	}
	defer wipe(d)

	ecdhKey, err := ecdh.P256().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: bad private scalar", interfaces.ErrInvalidKeyMaterial)
	}
	if !bytes.Equal(ecdhKey.PublicKey().Bytes(), point) {
		return nil, fmt.Errorf("%w: private scalar does not match public point", interfaces.ErrInvalidKeyMaterial)
	}

	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1 : 1+coordLength]),
			Y:     new(big.Int).SetBytes(point[1+coordLength:]),
		},
		D: new(big.Int).SetBytes(d),
	}
	return &KeyPair{priv: priv}, nil
}

func uncompressedPoint(kty, crv, x, y string) ([]byte, error) {
	if kty != keyTypeEC || crv != curveP256 {
		return nil, fmt.Errorf("%w: unsupported key type %q/%q", interfaces.ErrInvalidKeyMaterial, kty, crv)
	}
	xb, err := DecodeBase64URL(x)
	if err != nil || len(xb) != coordLength {
		return nil, fmt.Errorf("%w: bad x coordinate", interfaces.ErrInvalidKeyMaterial)
	}
	yb, err := DecodeBase64URL(y)
	if err != nil || len(yb) != coordLength {
		return nil, fmt.Errorf("%w: bad y coordinate", interfaces.ErrInvalidKeyMaterial)
	}

	point := make([]byte, 0, 1+2*coordLength)
	point = append(point, 0x04)
	point = append(point, xb...)
	return append(point, yb...), nil
}

// thumbprintInput fixes the member order crv, kty, x, y.
type thumbprintInput struct {
	Crv string `json:"crv"`
	Kty string `json:"kty"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// Thumbprint returns the first 40 hex characters of SHA-256 over
// {"crv":..,"kty":..,"x":..,"y":..}. It only depends on the public record.
func Thumbprint(rec interfaces.PublicKeyRecord) (interfaces.Thumbprint, error) {
	if rec.Crv == "" || rec.Kty == "" || rec.X == "" || rec.Y == "" {
		return "", fmt.Errorf("%w: record lacks crv, kty, x or y", interfaces.ErrInvalidKeyMaterial)
	}

	canonical, err := CanonicalJSON(thumbprintInput{Crv: rec.Crv, Kty: rec.Kty, X: rec.X, Y: rec.Y})
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrInvalidKeyMaterial, err)
	}
	digest := sha256.Sum256(canonical)
	return interfaces.Thumbprint(EncodeHex(digest[:])[:interfaces.ThumbprintLength]), nil
}

// EncryptPrivateRecord seals a private record under the password with a fresh salt.
func EncryptPrivateRecord(rec interfaces.PrivateKeyRecord, password string) (interfaces.EncryptedBlob, error) {
	return EncryptJSON(rec, password, nil)
}

// DecryptPrivateRecord opens a sealed private record and validates it.
func DecryptPrivateRecord(blob interfaces.EncryptedBlob, password string) (*KeyPair, error) {
	var rec interfaces.PrivateKeyRecord
	if err := DecryptJSON(blob, password, &rec); err != nil {
		return nil, err
	}
	return ParsePrivateRecord(rec)
}
