package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubBroadcastToPlayers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	c1 := &Client{PlayerID: "alice", Send: make(chan OutgoingMessage, 1), Hub: hub}
	c2 := &Client{PlayerID: "bob", Send: make(chan OutgoingMessage, 1), Hub: hub}

	hub.register <- c1
	hub.register <- c2

	msg := OutgoingMessage{
		Event: "room_ready",
		Data:  map[string]any{"roomId": "room123"},
	}

	hub.BroadcastToPlayers([]string{"alice", "bob"}, msg)

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "room_ready", (<-c1.Send).Event)
	assert.Equal(t, "room_ready", (<-c2.Send).Event)
}

func TestHubSendToPlayer(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	c1 := &Client{PlayerID: "alice", Send: make(chan OutgoingMessage, 1), Hub: hub}
	c2 := &Client{PlayerID: "bob", Send: make(chan OutgoingMessage, 1), Hub: hub}

	hub.register <- c1
	hub.register <- c2

	msg := OutgoingMessage{
		Event: "deal_hole",
		Data:  "hello alice",
	}

	hub.SendToPlayer("alice", msg)

	time.Sleep(20 * time.Millisecond)

	received := <-c1.Send
	assert.Equal(t, "deal_hole", received.Event)
	assert.Equal(t, "hello alice", received.Data)

	// bob must receive nothing
	select {
	case <-c2.Send:
		assert.Fail(t, "bob should NOT receive anything")
	default:
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	c := &Client{
		PlayerID: "alice",
		Send:     make(chan OutgoingMessage, 1),
		Hub:      hub,
	}

	hub.register <- c
	time.Sleep(10 * time.Millisecond)

	_, ok := hub.ClientByID("alice")
	assert.True(t, ok, "client should be registered")

	hub.unregister <- c
	time.Sleep(10 * time.Millisecond)

	_, ok = hub.ClientByID("alice")
	assert.False(t, ok, "client should be removed after unregister")
}

func TestHubOnIncomingRouted(t *testing.T) {
	hub := NewHub()

	got := make(chan IncomingMessage, 1)
	hub.OnIncoming = func(msg IncomingMessage) { got <- msg }
	go hub.Run()
	defer hub.Close()

	hub.incoming <- IncomingMessage{From: "alice", Event: "player_action"}

	select {
	case msg := <-got:
		assert.Equal(t, "alice", msg.From)
		assert.Equal(t, "player_action", msg.Event)
	case <-time.After(time.Second):
		t.Fatalf("incoming message not routed")
	}
}

func TestHubDropsForSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	// buffer of one, never drained: the second send must not block the hub
	c := &Client{PlayerID: "alice", Send: make(chan OutgoingMessage, 1), Hub: hub}
	hub.register <- c

	hub.SendToPlayer("alice", OutgoingMessage{Event: "first"})
	hub.SendToPlayer("alice", OutgoingMessage{Event: "second"})

	done := make(chan struct{})
	go func() {
		hub.SendToPlayer("alice", OutgoingMessage{Event: "third"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("hub stalled on a slow consumer")
	}
}

func BenchmarkHubBroadcast(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	c1 := &Client{PlayerID: "alice", Send: make(chan OutgoingMessage, 1024), Hub: hub}
	c2 := &Client{PlayerID: "bob", Send: make(chan OutgoingMessage, 1024), Hub: hub}

	// every Send needs a drain or the hub drops messages
	go func() {
		for range c1.Send {
		}
	}()
	go func() {
		for range c2.Send {
		}
	}()

	hub.register <- c1
	hub.register <- c2

	b.ResetTimer()
	msg := OutgoingMessage{Event: "bench"}
	for i := 0; i < b.N; i++ {
		hub.BroadcastToPlayers([]string{"alice", "bob"}, msg)
	}
}
