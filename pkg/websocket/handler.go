package websocket

import (
	"log"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	hub *Hub
}

func NewHandler() *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub: hub,
	}
}

// HandleWebSocket upgrades the connection and joins the caller to the rooms
// its audience needs: patients follow one request, drivers the pending feed,
// hospitals the whole fleet.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	audience := c.DefaultQuery("audience", "patient")

	var rooms []string
	switch audience {
	case "driver":
		rooms = append(rooms, RoomDrivers)
		if ambulanceID := c.Query("ambulance_id"); ambulanceID != "" {
			rooms = append(rooms, AmbulanceRoom(ambulanceID))
		}
	case "hospital":
		rooms = append(rooms, RoomHospital)
	default:
		if requestID := c.Query("request_id"); requestID != "" {
			rooms = append(rooms, RequestRoom(requestID))
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, audience, rooms)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
