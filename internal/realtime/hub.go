// Package realtime pushes report events to websocket clients grouped in rooms.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/observability"
)

const accessCheckTimeout = 5 * time.Second

// Conn is the subset of a websocket connection the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ReportAuthorizer decides whether a user may follow a report's room.
type ReportAuthorizer interface {
	CanFollowReport(ctx context.Context, user *domain.User, reportID string) bool
}

// Frame is the envelope for every message in both directions.
type Frame struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

type outbound struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one connected user.
type Client struct {
	id    string
	user  *domain.User
	conn  Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	rooms map[string]struct{}
}

// User returns the authenticated user behind the connection.
func (c *Client) User() *domain.User { return c.user }

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Options tunes a hub.
type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	Authorizer   ReportAuthorizer
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// Hub tracks clients and room membership.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	sendBuffer   int
	pingInterval time.Duration
	authorizer   ReportAuthorizer
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		rooms:        make(map[string]map[*Client]struct{}),
		sendBuffer:   opts.SendBuffer,
		pingInterval: opts.PingInterval,
		authorizer:   opts.Authorizer,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

// Room names.
func UserRoom(id string) string        { return "user:" + id }
func RoleRoom(role domain.Role) string { return "role:" + string(role) }
func ReportRoom(id string) string      { return "report:" + id }
func LocationRoom(state string) string {
	return "location:" + strings.ToLower(strings.TrimSpace(state))
}

// Serve registers conn for user and blocks until the connection ends.
func (h *Hub) Serve(conn Conn, user *domain.User) {
	c := &Client{
		id:    uuid.NewString(),
		user:  user,
		conn:  conn,
		send:  make(chan []byte, h.sendBuffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
	h.register(c)
	h.metrics.SocketOpened()
	h.logger.Debug("socket connected", zap.String("client_id", c.id), zap.String("user_id", user.ID.Hex()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(c)
	}()

	h.sendTo(c, "connected", map[string]any{"userId": user.ID.Hex(), "rooms": h.roomsOf(c)})
	h.readLoop(c)

	h.unregister(c)
	c.close()
	<-writerDone
	h.metrics.SocketClosed()
	h.logger.Debug("socket disconnected", zap.String("client_id", c.id))
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.user.ID.Hex()))
	if c.user.Role == domain.RolePolice && !c.user.CanActAsPolice() {
		return
	}
	h.joinLocked(c, RoleRoom(c.user.Role))
	// Location rooms carry every new report in the state, so citizens stay out.
	if state := strings.TrimSpace(c.user.Location.State); state != "" && c.user.CanActAsPolice() {
		h.joinLocked(c, LocationRoom(state))
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Join adds c to room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.joinLocked(c, room)
	}
}

// Leave removes c from room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) roomsOf(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Emit delivers event once to every client in any of rooms. Clients whose queue is full are
// disconnected instead of blocking the caller. A client reached only through report rooms is
// checked against the authorizer again and removed from those rooms once access is gone.
func (h *Hub) Emit(rooms []string, event string, data any) int {
	return h.emit(rooms, event, data, true)
}

func (h *Hub) emit(rooms []string, event string, data any, recheck bool) int {
	payload, err := json.Marshal(outbound{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error("encode socket event", zap.String("event", event), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	// targets maps each client to the report rooms that reached it, or nil when another room did.
	targets := make(map[*Client][]string)
	for _, room := range rooms {
		_, isReport := reportIDOf(room)
		for c := range h.rooms[room] {
			via, seen := targets[c]
			switch {
			case !isReport:
				targets[c] = nil
			case !seen:
				targets[c] = []string{room}
			case via != nil:
				targets[c] = append(via, room)
			}
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for c, via := range targets {
		if recheck && len(via) > 0 && !h.stillFollows(c, via) {
			continue
		}
		if h.enqueue(c, payload) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) stillFollows(c *Client, reportRooms []string) bool {
	allowed := false
	for _, room := range reportRooms {
		id, _ := reportIDOf(room)
		if h.canFollow(c.user, id) {
			allowed = true
			continue
		}
		h.Leave(c, room)
		h.logger.Debug("socket lost report access", zap.String("client_id", c.id), zap.String("room", room))
	}
	return allowed
}

func reportIDOf(room string) (string, bool) {
	return strings.CutPrefix(room, "report:")
}

func (h *Hub) enqueue(c *Client, payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		h.logger.Warn("dropping slow socket client", zap.String("client_id", c.id), zap.String("user_id", c.user.ID.Hex()))
		h.unregister(c)
		c.close()
		_ = c.conn.Close()
		return false
	}
}

func (h *Hub) sendTo(c *Client, event string, data any) {
	payload, err := json.Marshal(outbound{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	h.enqueue(c, payload)
}

// writeLoop is the only goroutine writing to the connection.
func (h *Hub) writeLoop(c *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *Client) {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.sendTo(c, "error", map[string]string{"message": "malformed frame"})
			continue
		}
		h.handle(c, frame)
	}
}

type reportRef struct {
	ReportID string `json:"reportId"`
}

type locationRef struct {
	State string `json:"state"`
}

func (h *Hub) handle(c *Client, frame Frame) {
	switch frame.Event {
	case "ping":
		h.sendTo(c, "pong", nil)
	case "join:report":
		var ref reportRef
		if json.Unmarshal(frame.Data, &ref) != nil || ref.ReportID == "" {
			h.sendTo(c, "error", map[string]string{"message": "reportId is required"})
			return
		}
		if !h.canFollow(c.user, ref.ReportID) {
			h.sendTo(c, "error", map[string]string{"message": "not allowed to follow this report"})
			return
		}
		room := ReportRoom(ref.ReportID)
		h.Join(c, room)
		h.sendTo(c, "joined", map[string]string{"room": room})
	case "leave:report":
		var ref reportRef
		if json.Unmarshal(frame.Data, &ref) == nil && ref.ReportID != "" {
			room := ReportRoom(ref.ReportID)
			h.Leave(c, room)
			h.sendTo(c, "left", map[string]string{"room": room})
		}
	case "join:location":
		var ref locationRef
		if json.Unmarshal(frame.Data, &ref) != nil || strings.TrimSpace(ref.State) == "" {
			h.sendTo(c, "error", map[string]string{"message": "state is required"})
			return
		}
		if !c.user.CanActAsPolice() {
			h.sendTo(c, "error", map[string]string{"message": "only verified police and administrators can follow locations"})
			return
		}
		room := LocationRoom(ref.State)
		h.Join(c, room)
		h.sendTo(c, "joined", map[string]string{"room": room})
	case "leave:location":
		var ref locationRef
		if json.Unmarshal(frame.Data, &ref) == nil && strings.TrimSpace(ref.State) != "" {
			room := LocationRoom(ref.State)
			h.Leave(c, room)
			h.sendTo(c, "left", map[string]string{"room": room})
		}
	default:
		h.sendTo(c, "error", map[string]string{"message": "unknown event " + frame.Event})
	}
}

func (h *Hub) canFollow(user *domain.User, reportID string) bool {
	if h.authorizer == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), accessCheckTimeout)
	defer cancel()
	return h.authorizer.CanFollowReport(ctx, user, reportID)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
		_ = c.conn.Close()
	}
}
