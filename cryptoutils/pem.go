package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// PublicKeyPEM is a PKIX public key in PEM format.
type PublicKeyPEM []byte

// PrivateKeyPEM is a SEC1 or PKCS8 EC private key in PEM format.
type PrivateKeyPEM []byte

// NewPublicKeyPEM validates PEM-encoded public key data.
func NewPublicKeyPEM(data []byte) (PublicKeyPEM, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, errors.New("invalid public key: not in PEM format or not a public key")
	}

	if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		return nil, fmt.Errorf("invalid public key structure: %w", err)
	}
	return PublicKeyPEM(data), nil
}

// Record converts the PEM key to a JWK public record.
func (p PublicKeyPEM) Record() (interfaces.PublicKeyRecord, error) {
	block, _ := pem.Decode(p)
	if block == nil {
		return interfaces.PublicKeyRecord{}, errors.New("failed to decode PEM block")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return interfaces.PublicKeyRecord{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidKeyMaterial, err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok || pub.Curve.Params().Name != curveP256 {
		return interfaces.PublicKeyRecord{}, fmt.Errorf("%w: not a P-256 public key", interfaces.ErrInvalidKeyMaterial)
	}
	return publicRecord(pub), nil
}

// PublicRecordToPEM converts a JWK public record to PKIX PEM.
func PublicRecordToPEM(rec interfaces.PublicKeyRecord) (PublicKeyPEM, error) {
	pub, err := ParsePublicRecord(rec)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// PEM exports the private key as SEC1 "EC PRIVATE KEY".
func (k *KeyPair) PEM() (PrivateKeyPEM, error) {
	der, err := x509.MarshalECPrivateKey(k.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}

// KeyPair parses the PEM data, trying PKCS8 before SEC1.
func (p PrivateKeyPEM) KeyPair() (*KeyPair, error) {
	block, _ := pem.Decode(p)
	if block == nil || (block.Type != "PRIVATE KEY" && block.Type != "EC PRIVATE KEY") {
		return nil, errors.New("invalid private key: not in PEM format or not a private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported private key type %T", interfaces.ErrInvalidKeyMaterial, key)
		}
		return NewKeyPair(ecKey)
	}

	ecKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidKeyMaterial, err)
	}
	return NewKeyPair(ecKey)
}
