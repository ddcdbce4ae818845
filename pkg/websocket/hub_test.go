package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient builds a client without a live connection; only the send channel
// and room membership matter for hub routing.
func testClient(hub *Hub, rooms ...string) *Client {
	return NewClient(hub, nil, "patient", rooms)
}

func drainWelcome(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		require.Equal(t, "welcome", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("no welcome message")
	}
}

func TestHubRoomRouting(t *testing.T) {
	hub := NewHub()

	inRoom := testClient(hub, RequestRoom("abc"))
	outside := testClient(hub, RoomHospital)

	hub.registerClient(inRoom)
	hub.registerClient(outside)
	drainWelcome(t, inRoom)
	drainWelcome(t, outside)

	hub.SendToRoom(RequestRoom("abc"), Message{Type: "request_update"})

	select {
	case raw := <-inRoom.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "request_update", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("room member did not receive the message")
	}

	select {
	case raw := <-outside.send:
		t.Fatalf("unexpected delivery outside the room: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubEvictsSlowClientOnce(t *testing.T) {
	hub := NewHub()

	slow := testClient(hub, RoomDrivers)
	hub.registerClient(slow)
	drainWelcome(t, slow)

	// Fill the slow client's buffer, then keep sending. The overflow send
	// evicts it from every map exactly once; later sends to the same room must
	// not touch the closed channel.
	for i := 0; i < cap(slow.send)+8; i++ {
		hub.SendToRoom(RoomDrivers, Message{Type: "ambulance_update"})
	}

	hub.mutex.Lock()
	_, stillRegistered := hub.clients[slow]
	_, roomExists := hub.rooms[RoomDrivers]
	hub.mutex.Unlock()
	assert.False(t, stillRegistered)
	assert.False(t, roomExists)

	// Unregistering after eviction is a no-op rather than a double close.
	hub.mutex.Lock()
	hub.evictClient(slow)
	hub.mutex.Unlock()
}

func TestHubConcurrentRoomSendsAndRegistrations(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup

	// Bridge-style senders race the Run goroutine's register/unregister and
	// broadcast handling.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.SendToRoom(RoomHospital, Message{Type: "ambulance_update"})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 25; j++ {
			client := testClient(hub, RoomHospital)
			hub.register <- client
			hub.unregister <- client
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		payload, _ := json.Marshal(Message{Type: "request_update", RoomID: RoomHospital})
		for j := 0; j < 50; j++ {
			hub.broadcast <- payload
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub deadlocked under concurrent sends")
	}
}
