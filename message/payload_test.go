package message

import (
	"errors"
	"testing"
)

func TestStatusReportRoundTrip(t *testing.T) {
	report := StatusReport{
		ErrorCounter:   3,
		CommandCounter: 250,
		Reserved:       7,
		Unit:           'F',
		Temperature:    0xDEADBEEF,
	}
	b, err := report.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != StatusReportSize {
		t.Fatalf("expected %d bytes, got %d", StatusReportSize, len(b))
	}
	var decoded StatusReport
	if err := decoded.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if decoded != report {
		t.Fatalf("expected %+v, actual %+v", report, decoded)
	}
}

func TestStatusReportShortPayload(t *testing.T) {
	var s StatusReport
	err := s.UnmarshalBinary(make([]byte, StatusReportSize-1))
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

func TestDisplayParamRoundTrip(t *testing.T) {
	p := DisplayParam{ValU32: 123456, ValI16: -42, ValStr: "hello"}
	b, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != DisplayParamSize {
		t.Fatalf("expected %d bytes, got %d", DisplayParamSize, len(b))
	}
	var decoded DisplayParam
	if err := decoded.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if decoded != p {
		t.Fatalf("expected %+v, actual %+v", p, decoded)
	}
}

func TestDisplayParamStringTooLong(t *testing.T) {
	p := DisplayParam{ValStr: "0123456789abcdef"}
	if _, err := p.MarshalBinary(); !errors.Is(err, ErrStringTooLong) {
		t.Fatalf("expected ErrStringTooLong, got %v", err)
	}
}

func TestDisplayParamStringWithNUL(t *testing.T) {
	p := DisplayParam{ValStr: "ab\x00cd"}
	if _, err := p.MarshalBinary(); !errors.Is(err, ErrStringNUL) {
		t.Fatalf("expected ErrStringNUL, got %v", err)
	}
}

func TestDisplayParamUnterminated(t *testing.T) {
	b := make([]byte, DisplayParamSize)
	for i := 6; i < len(b); i++ {
		b[i] = 'x'
	}
	var p DisplayParam
	if err := p.UnmarshalBinary(b); err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
}

func TestNewCommandLength(t *testing.T) {
	env := NewCommand(GetTemperature, []byte{'C'})
	if env.Length != CommandHeaderLength+TemperatureSize {
		t.Fatalf("expected length %d, got %d", CommandHeaderLength+TemperatureSize, env.Length)
	}
	if env.Topic != CommandTopic {
		t.Fatalf("expected command topic, got %v", env.Topic)
	}
}

func TestTelemetryTopic(t *testing.T) {
	expected := []Topic{0x0891, 0x0894, 0x0897}
	for node, topic := range expected {
		if actual := TelemetryTopic(node); actual != topic {
			t.Fatalf("node %d: expected %v, actual %v", node, topic, actual)
		}
		owner, ok := TelemetryOwner(topic)
		if !ok || owner != node {
			t.Fatalf("%v: expected owner %d, actual %d (%v)", topic, node, owner, ok)
		}
	}
	for _, topic := range []Topic{0x0890, 0x0892, 0x089A, CommandTopic, StatusRequestTopic} {
		if owner, ok := TelemetryOwner(topic); ok {
			t.Fatalf("%v: expected no owner, got %d", topic, owner)
		}
	}
}
