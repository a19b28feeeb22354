package smbenc

import (
	"errors"
	"testing"
)

func TestReaderSequence(t *testing.T) {
	data := []byte{
		0x39, 0x00, // uint16 57
		0x78, 0x00, 0x14, 0x00, // uint32 0x00140078
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // uint64 1
		0xAA, // uint8
	}
	r := NewReader(data)

	if v := r.ReadUint16(); v != 57 {
		t.Errorf("expected 57, got %d", v)
	}
	if v := r.ReadUint32(); v != 0x00140078 {
		t.Errorf("expected 0x00140078, got 0x%08X", v)
	}
	if v := r.ReadUint64(); v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
	if v := r.ReadUint8(); v != 0xAA {
		t.Errorf("expected 0xAA, got 0x%02X", v)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if r.Remaining() != 0 {
		t.Errorf("expected remaining 0, got %d", r.Remaining())
	}
	if r.Position() != len(data) {
		t.Errorf("expected position %d, got %d", len(data), r.Position())
	}
}

func TestReaderShortReadSticks(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})

	if v := r.ReadUint32(); v != 0 {
		t.Errorf("expected 0 on short read, got %d", v)
	}
	if !errors.Is(r.Err(), ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", r.Err())
	}

	// Subsequent reads are no-ops even if they would fit.
	if v := r.ReadUint8(); v != 0 {
		t.Errorf("expected 0 after error, got %d", v)
	}
	if r.Position() != 0 {
		t.Errorf("expected position 0, got %d", r.Position())
	}
}

func TestReaderReadFileID(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i + 1)
	}
	r := NewReader(data)

	id := r.ReadFileID()
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if id[0] != 1 || id[15] != 16 {
		t.Errorf("unexpected file id %x", id)
	}

	// Only 2 bytes remain.
	_ = r.ReadFileID()
	if !errors.Is(r.Err(), ErrShortRead) {
		t.Errorf("expected ErrShortRead, got %v", r.Err())
	}
}

func TestReaderReadBytesCopies(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	b := r.ReadBytes(2)
	b[0] = 0xFF
	if data[0] != 0x01 {
		t.Error("ReadBytes must return a copy")
	}

	if r.ReadBytes(-1) != nil || r.Err() == nil {
		t.Error("negative length must fail")
	}
}

func TestReaderExpectUint16(t *testing.T) {
	r := NewReader([]byte{0x39, 0x00})
	r.ExpectUint16(57)
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}

	r = NewReader([]byte{0x18, 0x00})
	r.ExpectUint16(57)
	if !errors.Is(r.Err(), ErrExpectMismatch) {
		t.Errorf("expected ErrExpectMismatch, got %v", r.Err())
	}
}

func TestReaderSkip(t *testing.T) {
	r := NewReader([]byte{0x00, 0x00, 0x00, 0x00, 0x07})
	r.Skip(4)
	if v := r.ReadUint8(); v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
	r.Skip(1)
	if r.Err() == nil {
		t.Error("expected error skipping past end")
	}
}
