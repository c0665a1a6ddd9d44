package freecachestore

import (
	"context"
	"testing"
)

func TestBackendGetSetDelete(t *testing.T) {
	ctx := context.Background()
	b := New(1024 * 1024)

	if _, ok, err := b.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get on empty backend: ok=%v err=%v", ok, err)
	}

	if err := b.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := b.Get(ctx, "k")
	if err != nil || !ok || string(data) != "v1" {
		t.Fatalf("Get after Set: data=%q ok=%v err=%v", data, ok, err)
	}

	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatal("expected miss after Delete")
	}
}
