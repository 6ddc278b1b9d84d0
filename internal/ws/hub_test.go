package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"canvas-agent/internal/model"
)

func receive(t *testing.T, c *Client) (model.Event, bool) {
	t.Helper()
	select {
	case b := <-c.send:
		var evt model.Event
		if err := json.Unmarshal(b, &evt); err != nil {
			t.Fatalf("unexpected payload: %v", err)
		}
		return evt, true
	case <-time.After(100 * time.Millisecond):
		return model.Event{}, false
	}
}

func TestHubRoutesByDocument(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	d1 := &Client{hub: h, send: make(chan []byte, 4), documentID: "d1"}
	d2 := &Client{hub: h, send: make(chan []byte, 4), documentID: "d2"}
	all := &Client{hub: h, send: make(chan []byte, 4)}
	h.Register(d1)
	h.Register(d2)
	h.Register(all)

	h.BroadcastEvent(model.Event{Type: "command.applied", DocumentID: "d1"})

	if evt, ok := receive(t, d1); !ok || evt.Type != "command.applied" {
		t.Fatalf("subscribed client missed event")
	}
	if _, ok := receive(t, all); !ok {
		t.Fatalf("global client missed event")
	}
	if _, ok := receive(t, d2); ok {
		t.Fatalf("event leaked to another document")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.Register(c)
	h.Unregister(c)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatalf("send channel not closed")
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.Register(c)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("run did not return after cancel")
	}
	if _, ok := <-c.send; ok {
		t.Fatalf("send channel not closed on shutdown")
	}

	// Nothing may block once the hub is gone.
	h.Register(&Client{hub: h, send: make(chan []byte, 1)})
	h.Unregister(c)
	for i := 0; i < 300; i++ {
		h.BroadcastEvent(model.Event{Type: "command.applied", DocumentID: "d1"})
	}
}
