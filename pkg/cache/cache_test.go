package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("search:acme-corp:john", "hit", 1*time.Second)
	val, ok := c.Get("search:acme-corp:john")
	if !ok || val != "hit" {
		t.Fatalf("expected hit, got %v exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("k", "v", 50*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired key to miss")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("k", "v", 1*time.Second)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected deleted key to miss")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New()
	c.Set("search:acme-corp:john", "a", 1*time.Second)
	c.Set("search:acme-corp:maria", "b", 1*time.Second)
	c.Set("search:tech-solutions:john", "c", 1*time.Second)
	c.Invalidate("search:acme-corp:")
	if _, ok := c.Get("search:acme-corp:john"); ok {
		t.Fatal("expected acme-corp keys invalidated")
	}
	if _, ok := c.Get("search:acme-corp:maria"); ok {
		t.Fatal("expected acme-corp keys invalidated")
	}
	if _, ok := c.Get("search:tech-solutions:john"); !ok {
		t.Fatal("expected other tenant's keys to survive")
	}
}
