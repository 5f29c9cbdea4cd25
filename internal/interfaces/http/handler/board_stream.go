package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
)

// StreamClient represents a connected SSE client
type StreamClient struct {
	ID     string
	UserID string
	Chan   chan StreamMessage
	Done   chan struct{}

	closeOnce sync.Once
}

// close signals the client's stream loop to stop. Safe to call from
// both the broadcast path and the connection teardown.
func (c *StreamClient) close() {
	c.closeOnce.Do(func() {
		close(c.Done)
	})
}

// StreamMessage is a single SSE frame
type StreamMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	ID    string `json:"id"`
}

// BoardStreamHandler fans board domain events out to SSE subscribers.
// It registers on the in-process event bus and re-encodes each event as
// a browser-friendly frame. Clients that stop draining their buffer are
// disconnected rather than throttling the broadcast.
type BoardStreamHandler struct {
	BaseHandler
	clients    sync.Map // clientID -> *StreamClient
	clientSeq  atomic.Int64
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int
	bufferSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// BoardStreamOption configures the stream handler
type BoardStreamOption func(*BoardStreamHandler)

// WithStreamLogger sets the logger
func WithStreamLogger(logger *zap.Logger) BoardStreamOption {
	return func(h *BoardStreamHandler) {
		h.logger = logger
	}
}

// WithStreamHeartbeat sets the heartbeat interval
func WithStreamHeartbeat(interval time.Duration) BoardStreamOption {
	return func(h *BoardStreamHandler) {
		h.heartbeat = interval
	}
}

// WithStreamMaxClients caps the number of concurrent subscribers
func WithStreamMaxClients(max int) BoardStreamOption {
	return func(h *BoardStreamHandler) {
		h.maxClients = max
	}
}

// NewBoardStreamHandler creates a new BoardStreamHandler
func NewBoardStreamHandler(opts ...BoardStreamOption) *BoardStreamHandler {
	h := &BoardStreamHandler{
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 1000,
		bufferSize: 100,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	return h
}

// Start launches the heartbeat loop
func (h *BoardStreamHandler) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.sendHeartbeats()
}

// Stop disconnects all clients and stops background work
func (h *BoardStreamHandler) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.clients.Range(func(key, value any) bool {
		if client, ok := value.(*StreamClient); ok {
			client.close()
		}
		h.clients.Delete(key)
		return true
	})
	h.wg.Wait()
}

// EventTypes implements shared.EventHandler
func (h *BoardStreamHandler) EventTypes() []string {
	return []string{
		board.EventTypeFeatureCreated,
		board.EventTypeVoteCast,
		board.EventTypeVoteWithdrawn,
		board.EventTypeImplementationStarted,
		board.EventTypeFeatureImplemented,
		board.EventTypeImplementationFailed,
	}
}

// Handle implements shared.EventHandler by broadcasting the event
func (h *BoardStreamHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.broadcast(StreamMessage{
		Event: event.EventType(),
		Data:  event,
		ID:    event.EventID().String(),
	})
	return nil
}

// broadcast sends a message to every connected client. A client whose
// buffer is full is dropped from the active set so one stalled reader
// never delays the rest.
func (h *BoardStreamHandler) broadcast(msg StreamMessage) {
	h.clients.Range(func(key, value any) bool {
		client, ok := value.(*StreamClient)
		if !ok {
			return true
		}
		select {
		case client.Chan <- msg:
		default:
			h.logger.Warn("Dropping slow SSE client",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
			h.clients.Delete(key)
			client.close()
		}
		return true
	})
}

// sendHeartbeats keeps idle connections alive through proxies
func (h *BoardStreamHandler) sendHeartbeats() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(StreamMessage{
				Event: "heartbeat",
				Data:  gin.H{"time": time.Now().UTC().Format(time.RFC3339)},
				ID:    uuid.New().String(),
			})
		}
	}
}

// ClientCount returns the number of connected clients
func (h *BoardStreamHandler) ClientCount() int {
	count := 0
	h.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Stream handles GET /api/v1/board/events as an SSE stream
func (h *BoardStreamHandler) Stream(c *gin.Context) {
	if h.ClientCount() >= h.maxClients {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"code":    "MAX_CONNECTIONS_REACHED",
				"message": "Too many active stream connections",
			},
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client := &StreamClient{
		ID:     fmt.Sprintf("stream-%d-%s", h.clientSeq.Add(1), uuid.New().String()[:8]),
		UserID: optionalUserID(c).String(),
		Chan:   make(chan StreamMessage, h.bufferSize),
		Done:   make(chan struct{}),
	}

	h.clients.Store(client.ID, client)
	defer func() {
		h.clients.Delete(client.ID)
		client.close()
	}()

	h.logger.Debug("SSE client connected",
		zap.String("client_id", client.ID),
		zap.Int("client_count", h.ClientCount()))

	h.sendEvent(c, StreamMessage{
		Event: "connected",
		Data:  gin.H{"clientId": client.ID},
		ID:    uuid.New().String(),
	})
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			return
		case <-client.Done:
			return
		case <-h.ctx.Done():
			return
		case msg := <-client.Chan:
			h.sendEvent(c, msg)
			c.Writer.Flush()
		}
	}
}

// sendEvent writes one SSE frame to the response
func (h *BoardStreamHandler) sendEvent(c *gin.Context, msg StreamMessage) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		h.logger.Warn("Failed to encode SSE payload",
			zap.String("event", msg.Event), zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\n", msg.Event)
	if msg.ID != "" {
		fmt.Fprintf(c.Writer, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
}
