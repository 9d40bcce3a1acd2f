package optimistic

import (
	"sync"
	"testing"
)

func TestPendingMarkUnmark(t *testing.T) {
	p := NewPending[string]()

	p.Mark("a")
	p.Mark("a")
	p.Mark("b")

	if !p.Contains("a") || !p.Contains("b") {
		t.Fatal("expected both keys marked")
	}
	if got := p.Len(); got != 2 {
		t.Fatalf("expected 2 pending keys, got %d", got)
	}

	p.Unmark("a")
	if p.Contains("a") {
		t.Fatal("expected key a retired")
	}
	if p.Contains("c") {
		t.Fatal("unknown key should not be pending")
	}

	p.Unmark("c")
	if got := p.Len(); got != 1 {
		t.Fatalf("expected 1 pending key, got %d", got)
	}
}

func TestPendingConcurrentAccess(t *testing.T) {
	p := NewPending[int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.Mark(n)
			p.Contains(n)
			if n%2 == 0 {
				p.Unmark(n)
			}
		}(i)
	}
	wg.Wait()

	if got := p.Len(); got != 25 {
		t.Fatalf("expected 25 keys to survive, got %d", got)
	}
}
