package message

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	// StringLength bounds DisplayParam.ValStr, terminator included.
	StringLength = 16

	DisplayParamSize = 4 + 2 + StringLength
	TemperatureSize  = 1
	StatusReportSize = 8
)

var (
	ErrShortPayload  = errors.New("payload shorter than its fixed size")
	ErrStringTooLong = fmt.Errorf("string does not fit in %d bytes", StringLength)
	ErrStringNUL     = errors.New("string contains a NUL byte")
	errUnterminated  = errors.New("string is not terminated")
)

// DisplayParam is the payload of the DISPLAY_PARAM command.
type DisplayParam struct {
	ValU32 uint32
	ValI16 int16
	ValStr string
}

func (p DisplayParam) MarshalBinary() ([]byte, error) {
	if len(p.ValStr) >= StringLength {
		return nil, ErrStringTooLong
	}
	if strings.IndexByte(p.ValStr, 0) >= 0 {
		return nil, ErrStringNUL
	}
	b := make([]byte, DisplayParamSize)
	binary.BigEndian.PutUint32(b[0:4], p.ValU32)
	binary.BigEndian.PutUint16(b[4:6], uint16(p.ValI16))
	copy(b[6:], p.ValStr)
	return b, nil
}

func (p *DisplayParam) UnmarshalBinary(b []byte) error {
	if len(b) < DisplayParamSize {
		return ErrShortPayload
	}
	str := b[6:DisplayParamSize]
	end := bytes.IndexByte(str, 0)
	if end < 0 {
		return errUnterminated
	}
	p.ValU32 = binary.BigEndian.Uint32(b[0:4])
	p.ValI16 = int16(binary.BigEndian.Uint16(b[4:6]))
	p.ValStr = string(str[:end])
	return nil
}

// TemperatureRequest is the payload of GET_TEMPERATURE.
type TemperatureRequest struct {
	Unit byte
}

func (r TemperatureRequest) MarshalBinary() ([]byte, error) {
	return []byte{r.Unit}, nil
}

func (r *TemperatureRequest) UnmarshalBinary(b []byte) error {
	if len(b) < TemperatureSize {
		return ErrShortPayload
	}
	r.Unit = b[0]
	return nil
}

// StatusReport is the housekeeping telemetry of a node. Peers vote on its
// Temperature field.
type StatusReport struct {
	ErrorCounter   uint8
	CommandCounter uint8
	Reserved       uint8
	Unit           byte
	Temperature    uint32
}

func (s StatusReport) MarshalBinary() ([]byte, error) {
	b := make([]byte, StatusReportSize)
	b[0] = s.ErrorCounter
	b[1] = s.CommandCounter
	b[2] = s.Reserved
	b[3] = s.Unit
	binary.BigEndian.PutUint32(b[4:8], s.Temperature)
	return b, nil
}

func (s *StatusReport) UnmarshalBinary(b []byte) error {
	if len(b) < StatusReportSize {
		return ErrShortPayload
	}
	s.ErrorCounter = b[0]
	s.CommandCounter = b[1]
	s.Reserved = b[2]
	s.Unit = b[3]
	s.Temperature = binary.BigEndian.Uint32(b[4:8])
	return nil
}
