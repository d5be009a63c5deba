package services

import (
	"context"

	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/realtime"
	"github.com/yungbote/neurobridge-courseview/internal/realtime/bus"
)

// SSEEmitter hands a notification to whatever delivers it to browsers.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter delivers to clients connected to this process.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Hub == nil {
		return
	}
	e.Hub.Broadcast(msg)
}

// RedisEmitter publishes to the bus so every instance's forwarder reaches its own
// clients. When the publish fails and Local is set, the message still reaches
// clients of this process.
type RedisEmitter struct {
	Bus   bus.Bus
	Local *realtime.SSEHub
	Log   *logger.Logger
}

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	err := e.Bus.Publish(ctx, msg)
	if err == nil {
		return
	}
	if e.Log != nil {
		e.Log.Warn("SSE publish failed", "channel", msg.Channel, "event", msg.Event, "local_fallback", e.Local != nil, "error", err)
	}
	if e.Local != nil {
		e.Local.Broadcast(msg)
	}
}
