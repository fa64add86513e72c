package network

import (
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/schnorr"
	"go.dedis.ch/protobuf"

	"github.com/luca-patrignani/tec/message"
)

var ErrSignature = errors.New("invalid frame signature")

// Frame is the wire form of an envelope.
type Frame struct {
	Sender    uint32
	Topic     uint32
	Code      uint32
	Length    uint32
	Payload   []byte
	Signature []byte
}

// NewFrame wraps env as sent by the node with rank sender.
func NewFrame(sender int, env message.Envelope) Frame {
	return Frame{
		Sender:  uint32(sender),
		Topic:   uint32(env.Topic),
		Code:    uint32(env.Code),
		Length:  uint32(env.Length),
		Payload: env.Payload,
	}
}

// Envelope returns the message carried by f.
func (f Frame) Envelope() message.Envelope {
	return message.Envelope{
		Topic:   message.Topic(f.Topic),
		Code:    message.CommandCode(f.Code),
		Length:  int(f.Length),
		Payload: f.Payload,
	}
}

// serialize returns the encoding of f with the Signature field cleared.
func (f Frame) serialize() ([]byte, error) {
	f.Signature = nil
	return protobuf.Encode(&f)
}

// Sign sets the signature of f using key.
func (f *Frame) Sign(key kyber.Scalar) error {
	b, err := f.serialize()
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(suite, key, b)
	if err != nil {
		return err
	}
	f.Signature = sig
	return nil
}

// Verify checks the signature of f against pub.
func (f Frame) Verify(pub kyber.Point) error {
	if len(f.Signature) == 0 {
		return fmt.Errorf("%w: frame from %d is not signed", ErrSignature, f.Sender)
	}
	b, err := f.serialize()
	if err != nil {
		return err
	}
	if err := schnorr.Verify(suite, pub, b, f.Signature); err != nil {
		return fmt.Errorf("%w: %w", ErrSignature, err)
	}
	return nil
}

// MarshalFrame encodes f.
func MarshalFrame(f Frame) ([]byte, error) {
	return protobuf.Encode(&f)
}

// UnmarshalFrame decodes a frame produced by MarshalFrame.
func UnmarshalFrame(b []byte) (Frame, error) {
	var f Frame
	if err := protobuf.Decode(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
