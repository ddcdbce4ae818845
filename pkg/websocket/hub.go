package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Room names used by the dispatch fan-out: one room per tracked request or
// ambulance, plus shared rooms for the driver and hospital audiences.
const (
	RoomDrivers  = "drivers"
	RoomHospital = "hospital"
)

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	for _, roomID := range client.initialRooms {
		h.joinRoom(client, roomID)
	}

	welcomeMsg := Message{
		Type:      "welcome",
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	}

	h.sendToClient(client, welcomeMsg)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.evictClient(client)
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.RoomID != "" {
		h.SendToRoom(msg.RoomID, msg)
	} else {
		h.sendToAll(msg)
	}
}

// sendToAll and SendToRoom may evict slow clients, which mutates the client
// and room maps, so both hold the write lock. SendToRoom is also called from
// outside the Run goroutine.
func (h *Hub) sendToAll(message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, _ := json.Marshal(message)
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.evictClient(client)
		}
	}
}

func (h *Hub) SendToRoom(roomID string, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		select {
		case client.send <- data:
		default:
			h.evictClient(client)
		}
	}
}

// evictClient drops a client from every map before closing its channel, so no
// later send path can hit the closed channel. Callers must hold the write lock.
func (h *Hub) evictClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	close(client.send)
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	select {
	case client.send <- data:
	default:
		h.evictClient(client)
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, roomID)
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func RequestRoom(requestID string) string {
	return "request_" + requestID
}

func AmbulanceRoom(ambulanceID string) string {
	return "ambulance_" + ambulanceID
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
