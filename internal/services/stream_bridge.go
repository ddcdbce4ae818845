package services

import (
	"context"
	"encoding/json"
	"time"

	"swasthsuraksha/internal/realtime"
	"swasthsuraksha/pkg/cache"
	"swasthsuraksha/pkg/logger"
	"swasthsuraksha/pkg/websocket"
)

const (
	redisChannelRequests   = "dispatch:requests"
	redisChannelAmbulances = "dispatch:ambulances"
)

// StreamBridge forwards broker events to the websocket rooms that the patient,
// driver, and hospital views are connected to, and mirrors them onto Redis
// pub/sub channels when a cache is configured so sibling processes see the
// same stream.
type StreamBridge struct {
	broker *realtime.Broker
	hub    *websocket.Hub
	redis  *cache.RedisCache
	log    *logger.Logger
}

func NewStreamBridge(broker *realtime.Broker, hub *websocket.Hub, redis *cache.RedisCache, log *logger.Logger) *StreamBridge {
	return &StreamBridge{
		broker: broker,
		hub:    hub,
		redis:  redis,
		log:    log,
	}
}

// Run blocks until ctx is cancelled.
func (b *StreamBridge) Run(ctx context.Context) {
	requestSub := b.broker.SubscribePending()
	defer requestSub.Unsubscribe()

	ambulanceSub := b.broker.SubscribeAmbulances()
	defer ambulanceSub.Unsubscribe()

	b.log.Info("Stream bridge started")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Stream bridge stopped")
			return
		case event, ok := <-requestSub.C():
			if !ok {
				return
			}
			b.forwardRequest(ctx, event)
		case event, ok := <-ambulanceSub.C():
			if !ok {
				return
			}
			b.forwardAmbulance(ctx, event)
		}
	}
}

func (b *StreamBridge) forwardRequest(ctx context.Context, event realtime.Event) {
	data := toMap(event.Request)
	data["change"] = string(event.Change)

	message := websocket.Message{
		Type:      "request_update",
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	// The patient tracking page watches a single request; drivers and the
	// hospital dashboard watch the whole queue.
	b.hub.SendToRoom(websocket.RequestRoom(event.Request.ID.Hex()), message)
	b.hub.SendToRoom(websocket.RoomDrivers, message)
	b.hub.SendToRoom(websocket.RoomHospital, message)

	if event.Request.AssignedAmbulanceID != nil {
		b.hub.SendToRoom(websocket.AmbulanceRoom(event.Request.AssignedAmbulanceID.Hex()), message)
	}

	b.mirror(ctx, redisChannelRequests, event)
}

func (b *StreamBridge) forwardAmbulance(ctx context.Context, event realtime.Event) {
	data := toMap(event.Ambulance)
	data["change"] = string(event.Change)

	message := websocket.Message{
		Type:      "ambulance_update",
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	b.hub.SendToRoom(websocket.AmbulanceRoom(event.Ambulance.ID.Hex()), message)
	b.hub.SendToRoom(websocket.RoomHospital, message)

	b.mirror(ctx, redisChannelAmbulances, event)
}

func (b *StreamBridge) mirror(ctx context.Context, channel string, event realtime.Event) {
	if b.redis == nil {
		return
	}
	if err := b.redis.Publish(ctx, channel, event); err != nil {
		b.log.WithError(err).Debug("Failed to mirror event to redis")
	}
}

func toMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}

	result := make(map[string]interface{})
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]interface{}{}
	}
	return result
}
