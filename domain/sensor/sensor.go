// Package sensor acquires the local temperature of a node and converts it
// to the unit requested by the ground.
package sensor

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Unit selects the scale of reported temperatures.
type Unit byte

const (
	Celsius    Unit = 'C'
	Fahrenheit Unit = 'F'
)

var ErrInvalidUnit = errors.New("invalid unit")

func (u Unit) Valid() bool {
	return u == Celsius || u == Fahrenheit
}

func (u Unit) String() string {
	return string(rune(u))
}

// Convert expresses a raw Celsius reading in unit.
func Convert(raw uint8, unit Unit) (uint32, error) {
	switch unit {
	case Celsius:
		return uint32(raw), nil
	case Fahrenheit:
		return uint32(raw)*9/5 + 32, nil
	}
	return 0, fmt.Errorf("%w %q, use C or F", ErrInvalidUnit, byte(unit))
}

// Source returns raw sensor readings in the 0-255 range.
type Source interface {
	Read() (uint8, error)
}

// RandomSource simulates a sensor.
type RandomSource struct{}

func (RandomSource) Read() (uint8, error) {
	return uint8(rand.IntN(256)), nil
}

// FixedSource always reads the same value.
type FixedSource uint8

func (f FixedSource) Read() (uint8, error) {
	return uint8(f), nil
}

// Thermometer samples a Source and converts its readings.
type Thermometer struct {
	Source Source
}

// Sample reads the sensor in unit. When unit is not valid the Celsius value
// is returned together with an error wrapping ErrInvalidUnit, so that the
// caller can report it and fall back to Celsius.
func (t Thermometer) Sample(unit Unit) (uint32, error) {
	raw, err := t.Source.Read()
	if err != nil {
		return 0, fmt.Errorf("read sensor: %w", err)
	}
	value, err := Convert(raw, unit)
	if err != nil {
		return uint32(raw), err
	}
	return value, nil
}
