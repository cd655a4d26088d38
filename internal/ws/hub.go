package ws

import (
	"context"
	"sync"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// Hub fans record events out to connected clients. An account may hold
// several connections (tabs); the session layer still allows only one
// session, so they all carry the same session id.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting account=%s", h.maxConns, c.accountID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.accountID]; !ok {
		h.clients[c.accountID] = make(map[*Client]struct{})
	}
	h.clients[c.accountID][c] = struct{}{}
	h.total++
	h.mu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.accountID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.accountID)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()
}

// HandleMessage dispatches post-handshake client frames. The channel is
// server-push only, so anything but protocol noise gets an error event.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventAuth:
		// already authenticated during the handshake
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		// send buffer full: drop for this client rather than block the hub
		logger.Errorf("ws send buffer full account=%s, dropping %s", c.accountID, msg.Type)
	}
}

func (h *Hub) broadcast(msg OutgoingMessage, filter func(*Client) bool) {
	h.mu.RLock()
	targets := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			if filter == nil || filter(c) {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

// BroadcastNoticeCreated pushes a new notice to every connected client.
func (h *Hub) BroadcastNoticeCreated(n *model.Notice) {
	h.broadcast(OutgoingMessage{Type: EventNoticeCreated, Payload: n}, nil)
}

// BroadcastNoticeDeleted pushes a notice removal to every connected client.
func (h *Hub) BroadcastNoticeDeleted(noticeID string) {
	h.broadcast(OutgoingMessage{Type: EventNoticeDeleted, Payload: NoticeDeletedPayload{NoticeID: noticeID}}, nil)
}

// BroadcastReportCreated pushes a new report to connected administrators.
func (h *Hub) BroadcastReportCreated(rep *model.Report) {
	h.broadcast(OutgoingMessage{Type: EventReportCreated, Payload: rep},
		func(c *Client) bool { return c.role == model.RoleAdmin })
}

// NotifyReportReviewed tells the report author about the review decision.
func (h *Hub) NotifyReportReviewed(authorID string, rep *model.Report) {
	h.mu.RLock()
	targets := make([]*Client, 0, 2)
	for c := range h.clients[authorID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	msg := OutgoingMessage{
		Type:    EventReportReviewed,
		Payload: ReportReviewedPayload{ReportID: rep.ID, Status: string(rep.Status)},
	}
	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}
