package message

import (
	"errors"
	"testing"
)

type otherMessage struct{}

func (otherMessage) ID() ID { return ID(99) }

func TestRegisterDispatchRelease(t *testing.T) {
	m := NewMap()

	var got []Packet
	sub, err := m.Register(IDAISPacket, func(msg Message) {
		got = append(got, msg.(Packet))
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if !m.Dispatch(Packet{Bits: []byte{0xAA}, BitCount: 8}) {
		t.Error("expected the packet to be delivered")
	}
	if m.Dispatch(otherMessage{}) {
		t.Error("message without handler should not be delivered")
	}

	sub.Release()
	if m.Dispatch(Packet{}) {
		t.Error("no delivery expected after Release()")
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(got))
	}
	if got[0].BitCount != 8 {
		t.Errorf("unexpected packet %+v", got[0])
	}

	// Releasing twice is harmless and does not affect a new owner
	sub2, err := m.Register(IDAISPacket, func(Message) {})
	if err != nil {
		t.Fatalf("re-register after release failed: %v", err)
	}
	sub.Release()
	if !m.Registered(IDAISPacket) {
		t.Error("stale Release() removed the new subscription")
	}
	sub2.Release()
}

func TestRegisterTwice(t *testing.T) {
	m := NewMap()
	sub, err := m.Register(IDAISPacket, func(Message) {})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	defer sub.Release()

	if _, err := m.Register(IDAISPacket, func(Message) {}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestIDString(t *testing.T) {
	if IDAISPacket.String() != "AISPacket" {
		t.Errorf("unexpected name %q", IDAISPacket.String())
	}
	if ID(42).String() != "ID(42)" {
		t.Errorf("unexpected name %q", ID(42).String())
	}
}
