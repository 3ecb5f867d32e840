package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetMiss(t *testing.T) {
	c := New()
	if _, ok := c.Get(context.Background(), "missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestMemorySetThenGet(t *testing.T) {
	c := New()
	ctx := context.Background()
	c.Set(ctx, "key", []byte("value"), time.Minute)

	got, ok := c.Get(ctx, "key")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got) != "value" {
		t.Fatalf("got %q, want %q", got, "value")
	}
}

func TestMemoryExpires(t *testing.T) {
	c := New()
	ctx := context.Background()
	c.Set(ctx, "key", []byte("value"), time.Nanosecond)
	time.Sleep(time.Millisecond)

	if _, ok := c.Get(ctx, "key"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	c := New()
	ctx := context.Background()
	c.Set(ctx, "key", []byte("value"), 0)
	time.Sleep(time.Millisecond)

	if _, ok := c.Get(ctx, "key"); !ok {
		t.Fatal("zero TTL should not expire")
	}
}

func TestMemorySetCopiesValue(t *testing.T) {
	c := New()
	ctx := context.Background()
	val := []byte("original")
	c.Set(ctx, "key", val, time.Minute)
	val[0] = 'X'

	got, _ := c.Get(ctx, "key")
	if string(got) != "original" {
		t.Fatalf("cache should not alias caller's slice: got %q", got)
	}
}

func TestNewAutoFallsBackToMemoryWithoutRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	c := NewAuto()
	if _, ok := c.(*memory); !ok {
		t.Fatalf("expected *memory cache when REDIS_ADDR unset, got %T", c)
	}
}
