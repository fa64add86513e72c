package network

import (
	"encoding/hex"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// KeyPair signs the frames published by a bus.
type KeyPair struct {
	Private kyber.Scalar
	Public  kyber.Point
}

// NewKeyPair picks a random key pair.
func NewKeyPair() KeyPair {
	priv := suite.Scalar().Pick(suite.RandomStream())
	return KeyPair{Private: priv, Public: suite.Point().Mul(priv, nil)}
}

// ParsePrivateKey rebuilds a key pair from its hex encoded private scalar.
func ParsePrivateKey(s string) (KeyPair, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return KeyPair{}, fmt.Errorf("decode private key: %w", err)
	}
	priv := suite.Scalar()
	if err := priv.UnmarshalBinary(b); err != nil {
		return KeyPair{}, fmt.Errorf("decode private key: %w", err)
	}
	return KeyPair{Private: priv, Public: suite.Point().Mul(priv, nil)}, nil
}

// MarshalPrivateKey returns the hex encoding of the private scalar.
func (k KeyPair) MarshalPrivateKey() (string, error) {
	b, err := k.Private.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MarshalPublicKey returns the hex encoding of pub.
func MarshalPublicKey(pub kyber.Point) (string, error) {
	b, err := pub.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParsePublicKey decodes a key produced by MarshalPublicKey.
func ParsePublicKey(s string) (kyber.Point, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	pub := suite.Point()
	if err := pub.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return pub, nil
}
