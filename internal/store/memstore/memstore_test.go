package memstore

import (
	"context"
	"testing"
)

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Read(ctx, "todos"); err != nil || ok {
		t.Fatalf("absent key: ok=%v err=%v", ok, err)
	}

	data := []byte(`[]`)
	if err := s.Write(ctx, "todos", data); err != nil {
		t.Fatalf("write: %v", err)
	}
	data[0] = 'x'

	got, ok, err := s.Read(ctx, "todos")
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("read = %q ok=%v err=%v", got, ok, err)
	}
	got[0] = 'y'
	again, _, _ := s.Read(ctx, "todos")
	if string(again) != "[]" {
		t.Fatalf("stored blob was aliased: %q", again)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	if err := s.Write(ctx, "todos", []byte(`[]`)); err == nil {
		t.Fatalf("expected error on canceled write")
	}
	if _, _, err := s.Read(ctx, "todos"); err == nil {
		t.Fatalf("expected error on canceled read")
	}
}
