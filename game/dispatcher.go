package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/drawguess/broadcast"
	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/monitor"
	"github.com/wfunc/drawguess/network"
)

// HandlerFunc handles one decoded event from clientID. A *ClientError is
// reported back to the client; any other error is only logged.
type HandlerFunc func(ctx context.Context, clientID string, ev network.Event) error

type Dispatcher struct {
	handlers    map[string]HandlerFunc
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
	mutex       sync.RWMutex
}

func NewDispatcher(broadcaster broadcast.Broadcaster, mon *monitor.Monitor) *Dispatcher {
	return &Dispatcher{
		handlers:    make(map[string]HandlerFunc),
		broadcaster: broadcaster,
		monitor:     mon,
	}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.handlers[event] = h
}

// Dispatch decodes one frame and runs its handler to completion. Frames
// that cannot be decoded or carry an unknown tag are dropped; nothing is
// ever returned to the transport.
func (d *Dispatcher) Dispatch(ctx context.Context, clientID string, data []byte) {
	ev, err := network.DecodeEvent(data)
	if err != nil {
		logger.Log.Warnf("Dropping malformed frame from client %s: %v", clientID, err)
		return
	}

	d.mutex.RLock()
	h, ok := d.handlers[ev.Name]
	d.mutex.RUnlock()
	if !ok {
		logger.Log.Warnf("Dropping unknown event %q from client %s", ev.Name, clientID)
		return
	}

	d.monitor.IncEventsReceived(ev.Name)
	start := time.Now()
	err = h(ctx, clientID, ev)
	d.monitor.ObserveEventLatency(ev.Name, time.Since(start))
	if err == nil {
		return
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		logger.Log.Infof("Rejected %s from client %s: %v", ev.Name, clientID, err)
		d.broadcaster.Send(clientID, ErrorMessage{Event: network.EventError, Message: ce.Message})
		return
	}
	logger.Log.Errorf("Handler %s failed for client %s: %v", ev.Name, clientID, err)
}
