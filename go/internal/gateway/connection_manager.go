package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

// allResources keys viewers that follow every resource.
const allResources models.Resource = ""

// ConnectionManager fans change events out to websocket viewers, grouped by
// the resource each viewer follows.
type ConnectionManager struct {
	mu      sync.RWMutex
	viewers map[models.Resource]map[*viewer]struct{}

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock

	events chan models.ChangeEvent
}

// viewer is one websocket client. send is closed exactly once, by drop.
type viewer struct {
	id       string
	resource models.Resource
	ws       *websocket.Conn
	send     chan []byte
	since    time.Time
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int // frames queued per viewer before it is dropped
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     time.Minute,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      256,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		viewers: make(map[models.Resource]map[*viewer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		clock:  clock,
		events: make(chan models.ChangeEvent, 1000),
	}
}

// Start delivers queued events until ctx is done, then disconnects everyone.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("timer fan-out started")

	for {
		select {
		case <-ctx.Done():
			cm.dropAll()
			log.Info().Msg("timer fan-out stopped")
			return
		case ev := <-cm.events:
			cm.deliver(ev)
		}
	}
}

// UpgradeConnection turns r into a viewer of resource (allResources for every boss).
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, resource models.Resource) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade viewer connection: %w", err)
	}

	v := &viewer{
		id:       uuid.NewString(),
		resource: resource,
		ws:       ws,
		send:     make(chan []byte, cm.config.SendBuffer),
		since:    cm.clock.Now(),
	}
	cm.add(v)

	go cm.writeLoop(v)
	go cm.readLoop(v)

	log.Info().
		Str("viewer_id", v.id).
		Str("resource", string(resource)).
		Msg("viewer connected")
	return nil
}

func (cm *ConnectionManager) add(v *viewer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	group, ok := cm.viewers[v.resource]
	if !ok {
		group = make(map[*viewer]struct{})
		cm.viewers[v.resource] = group
	}
	group[v] = struct{}{}
	metrics.GatewayConnections.Inc()
}

// drop forgets v and closes its send queue. Later calls are no-ops.
func (cm *ConnectionManager) drop(v *viewer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	group := cm.viewers[v.resource]
	if _, ok := group[v]; !ok {
		return
	}
	delete(group, v)
	if len(group) == 0 {
		delete(cm.viewers, v.resource)
	}
	close(v.send)
	metrics.GatewayConnections.Dec()

	log.Info().
		Str("viewer_id", v.id).
		Dur("connected_for", cm.clock.Since(v.since)).
		Msg("viewer disconnected")
}

func (cm *ConnectionManager) dropAll() {
	cm.mu.RLock()
	var all []*viewer
	for _, group := range cm.viewers {
		for v := range group {
			all = append(all, v)
		}
	}
	cm.mu.RUnlock()

	for _, v := range all {
		cm.drop(v)
	}
}

// Broadcast queues ev without blocking. Events are dropped when the queue is full.
func (cm *ConnectionManager) Broadcast(ev models.ChangeEvent) {
	select {
	case cm.events <- ev:
	default:
		metrics.GatewayDroppedTotal.Inc()
		log.Warn().Str("resource", string(ev.Resource)).Msg("fan-out queue full, dropping change event")
	}
}

// audience returns the viewers of resource plus those following every resource.
// The caller must hold cm.mu.
func (cm *ConnectionManager) audience(resource models.Resource) []*viewer {
	var out []*viewer
	for v := range cm.viewers[resource] {
		out = append(out, v)
	}
	if resource != allResources {
		for v := range cm.viewers[allResources] {
			out = append(out, v)
		}
	}
	return out
}

func (cm *ConnectionManager) deliver(ev models.ChangeEvent) {
	frame, err := feed.EncodeEnvelope(ev, cm.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("row_id", ev.RowID.String()).Msg("failed to encode change event")
		return
	}

	// drop closes send under the write lock, so holding the read lock keeps
	// every send queue in the audience open until the loop finishes.
	cm.mu.RLock()
	targets := cm.audience(ev.Resource)
	var slow []*viewer
	for _, v := range targets {
		select {
		case v.send <- frame:
		default:
			slow = append(slow, v)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	for _, v := range slow {
		metrics.GatewayDroppedTotal.Inc()
		log.Warn().Str("viewer_id", v.id).Msg("viewer too slow, disconnecting")
		cm.drop(v)
		if v.ws != nil {
			_ = v.ws.Close()
		}
	}
	metrics.GatewayBroadcastsTotal.WithLabelValues(string(ev.Resource)).Inc()

	log.Debug().
		Str("op", string(ev.Op)).
		Str("resource", string(ev.Resource)).
		Int("viewers", len(targets)).
		Msg("change event delivered")
}

type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ByResource       map[string]int `json:"by_resource"`
}

// Stats counts viewers per resource; viewers of every resource are listed under "*".
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{ByResource: make(map[string]int, len(cm.viewers))}
	for resource, group := range cm.viewers {
		key := string(resource)
		if resource == allResources {
			key = "*"
		}
		stats.ByResource[key] = len(group)
		stats.TotalConnections += len(group)
	}
	return stats
}

// writeLoop is the only writer on v.ws. It exits when v.send is closed or a write fails.
func (cm *ConnectionManager) writeLoop(v *viewer) {
	ping := cm.clock.NewTicker(cm.config.PingInterval)
	defer func() {
		ping.Stop()
		_ = v.ws.Close()
		cm.drop(v)
	}()

	write := func(kind int, data []byte) error {
		_ = v.ws.SetWriteDeadline(time.Now().Add(cm.config.WriteTimeout))
		return v.ws.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-v.send:
			if !ok {
				_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := write(websocket.TextMessage, frame); err != nil {
				log.Warn().Err(err).Str("viewer_id", v.id).Msg("write to viewer failed")
				return
			}
		case <-ping.Chan():
			if err := write(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("viewer_id", v.id).Msg("ping to viewer failed")
				return
			}
		}
	}
}

// readLoop keeps the read deadline fresh from pongs. Viewers send nothing
// meaningful; any frame they send is discarded.
func (cm *ConnectionManager) readLoop(v *viewer) {
	defer func() {
		cm.drop(v)
		_ = v.ws.Close()
	}()

	extend := func() {
		_ = v.ws.SetReadDeadline(time.Now().Add(cm.config.ReadTimeout))
	}
	v.ws.SetReadLimit(cm.config.MaxMessageSize)
	extend()
	v.ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		if _, _, err := v.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("viewer_id", v.id).Msg("viewer closed unexpectedly")
			}
			return
		}
		extend()
	}
}
