package sse

import (
	"sync"
	"testing"

	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

func TestBroadcast(t *testing.T) {
	SetLogger(zerolog.Nop())
	clients := NewSSEClients()

	a1 := NewClient("a")
	a2 := NewClient("a")
	b := NewClient("b")
	for _, c := range []*Client{a1, a2, b} {
		clients.Add(c)
	}

	if sent := clients.Broadcast("a", EventReload); sent != 2 {
		t.Errorf("Expected 2 deliveries, got %d", sent)
	}

	for _, c := range []*Client{a1, a2} {
		if msg := <-c.Msg; msg != EventReload {
			t.Errorf("Expected %q, got %q", EventReload, msg)
		}
	}
	if len(b.Msg) != 0 {
		t.Error("Expected client of another post to receive nothing")
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	SetLogger(zerolog.Nop())
	clients := NewSSEClients()
	c := NewClient("p")
	clients.Add(c)

	for i := 0; i < clientBuffer*3; i++ {
		clients.NotifyReload("p")
	}

	if len(c.Msg) != clientBuffer {
		t.Errorf("Expected a full buffer of %d, got %d", clientBuffer, len(c.Msg))
	}
}

func TestDelete(t *testing.T) {
	SetLogger(zerolog.Nop())
	clients := NewSSEClients()
	c := NewClient("p")
	clients.Add(c)

	clients.Delete(c)
	clients.Delete(c)

	if clients.Len() != 0 {
		t.Errorf("Expected no clients, got %d", clients.Len())
	}
	if _, open := <-c.Msg; open {
		t.Error("Expected channel to be closed")
	}
	if sent := clients.Broadcast("p", EventReload); sent != 0 {
		t.Errorf("Expected no deliveries after delete, got %d", sent)
	}
}

func TestConcurrentAccess(t *testing.T) {
	SetLogger(zerolog.Nop())
	clients := NewSSEClients()
	postID := model.PostID("p")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewClient(postID)
			clients.Add(c)
			clients.Delete(c)
		}()
		go func() {
			defer wg.Done()
			clients.NotifyReload(postID)
		}()
	}
	wg.Wait()

	if clients.Len() != 0 {
		t.Errorf("Expected no clients, got %d", clients.Len())
	}
}
