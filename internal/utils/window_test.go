package utils

import (
	"testing"
	"time"
)

func TestMessageWindowAdd(t *testing.T) {
	window := NewMessageWindow(5 * time.Second)
	now := time.Now()
	if count := window.Add("1", now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add("2", now.Add(1*time.Second))
	window.Add("3", now.Add(2*time.Second))
	if count := window.Add("4", now.Add(3*time.Second)); count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
	if count := window.Add("5", now.Add(7*time.Second)); count != 2 {
		t.Fatalf("expected 2 after expiry, got %d", count)
	}
}

func TestMessageWindowDrain(t *testing.T) {
	window := NewMessageWindow(5 * time.Second)
	now := time.Now()
	window.Add("1", now)
	window.Add("2", now.Add(1*time.Second))

	ids := window.Drain(now.Add(2 * time.Second))
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if ids = window.Drain(now.Add(2 * time.Second)); len(ids) != 0 {
		t.Fatalf("expected empty after drain, got %v", ids)
	}
}
