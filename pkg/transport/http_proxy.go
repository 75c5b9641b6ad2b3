package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/vibetool/pkg/logger"
)

// Proxy defines the interface for proxying messages between clients and the container.
type Proxy interface {
	// Start starts the proxy.
	Start(ctx context.Context) error

	// Stop stops the proxy.
	Stop(ctx context.Context) error

	// GetMessageChannel returns the channel of messages destined for the container.
	GetMessageChannel() chan jsonrpc2.Message

	// SendMessageToDestination enqueues a message for the container's stdin.
	SendMessageToDestination(msg jsonrpc2.Message) error

	// ForwardResponseToClients forwards a message from the container to clients.
	ForwardResponseToClients(ctx context.Context, msg jsonrpc2.Message) error
}

// HTTPSSEProxy encapsulates the HTTP proxy functionality for the stdio
// transport. It exposes an SSE endpoint and a JSON-RPC message endpoint,
// and routes replies back to the session that issued the request.
type HTTPSSEProxy struct {
	// Basic configuration
	host          string
	port          int
	containerName string

	// HTTP server
	server     *http.Server
	shutdownCh chan struct{}

	// SSE clients keyed by session ID
	sseClients      map[string]*SSEClient
	sseClientsMutex sync.RWMutex

	// Routing of in-flight requests: request id -> session id
	pendingRequests map[jsonrpc2.ID]string
	pendingReqMutex sync.Mutex

	// Messages produced before any client subscribed
	pendingMessages []*PendingSSEMessage
	pendingMutex    sync.Mutex

	// Messages destined for the container
	messageCh chan jsonrpc2.Message
}

// NewHTTPSSEProxy creates a new HTTP SSE proxy for the stdio transport.
func NewHTTPSSEProxy(host string, port int, containerName string) *HTTPSSEProxy {
	return &HTTPSSEProxy{
		host:            host,
		port:            port,
		containerName:   containerName,
		shutdownCh:      make(chan struct{}),
		messageCh:       make(chan jsonrpc2.Message, 100),
		sseClients:      make(map[string]*SSEClient),
		pendingRequests: make(map[jsonrpc2.ID]string),
		pendingMessages: []*PendingSSEMessage{},
	}
}

// Start starts the HTTP SSE proxy.
func (p *HTTPSSEProxy) Start(_ context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc(HTTPSSEEndpoint, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p.handleSSEConnection(w, r)
	})

	mux.HandleFunc(HTTPMessagesEndpoint, p.handlePostRequest)

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	p.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", p.host, p.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	go func() {
		logger.Infof("HTTP proxy started for container %s on port %d", p.containerName, p.port)
		logger.Infof("SSE endpoint: http://%s:%d%s", p.host, p.port, HTTPSSEEndpoint)
		logger.Infof("JSON-RPC endpoint: http://%s:%d%s", p.host, p.port, HTTPMessagesEndpoint)

		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the HTTP SSE proxy.
func (p *HTTPSSEProxy) Stop(ctx context.Context) error {
	select {
	case <-p.shutdownCh:
		// Already stopped
	default:
		// Signals every SSE handler to close its own client
		close(p.shutdownCh)
	}

	if p.server != nil {
		return p.server.Shutdown(ctx)
	}

	return nil
}

// GetMessageChannel returns the channel of messages destined for the container.
func (p *HTTPSSEProxy) GetMessageChannel() chan jsonrpc2.Message {
	return p.messageCh
}

// SendMessageToDestination enqueues a message for the container's stdin.
// Enqueueing blocks when the queue is full, which throttles producers
// until the drain worker makes progress.
func (p *HTTPSSEProxy) SendMessageToDestination(msg jsonrpc2.Message) error {
	select {
	case p.messageCh <- msg:
		return nil
	case <-p.shutdownCh:
		return fmt.Errorf("proxy is shutting down")
	}
}

// ForwardResponseToClients forwards a message from the container to clients.
// A response whose id matches an in-flight request is delivered only to the
// session that issued it; notifications and server-initiated requests are
// broadcast to every live session.
func (p *HTTPSSEProxy) ForwardResponseToClients(_ context.Context, msg jsonrpc2.Message) error {
	data, err := jsonrpc2.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode JSON-RPC message: %w", err)
	}

	sseMsg := NewSSEMessage("message", string(data))

	if resp, ok := msg.(*jsonrpc2.Response); ok {
		if sessionID, found := p.takePendingRequest(resp.ID); found {
			return p.sendSSEEventToSession(sessionID, sseMsg)
		}
	}

	return p.broadcastSSEEvent(sseMsg)
}

// RegisterPendingRequest records which session issued the request so that
// the eventual response can be routed back to it.
func (p *HTTPSSEProxy) RegisterPendingRequest(id jsonrpc2.ID, sessionID string) {
	p.pendingReqMutex.Lock()
	defer p.pendingReqMutex.Unlock()
	p.pendingRequests[id] = sessionID
}

// takePendingRequest looks up and removes the routing entry for a request id.
func (p *HTTPSSEProxy) takePendingRequest(id jsonrpc2.ID) (string, bool) {
	p.pendingReqMutex.Lock()
	defer p.pendingReqMutex.Unlock()

	sessionID, ok := p.pendingRequests[id]
	if ok {
		delete(p.pendingRequests, id)
	}
	return sessionID, ok
}

// handleSSEConnection handles an SSE connection.
func (p *HTTPSSEProxy) handleSSEConnection(w http.ResponseWriter, r *http.Request) {
	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Mint a session token for this client
	sessionID := uuid.New().String()
	messageCh := make(chan string, 100)

	p.sseClientsMutex.Lock()
	p.sseClients[sessionID] = &SSEClient{
		MessageCh: messageCh,
		CreatedAt: time.Now(),
	}
	p.sseClientsMutex.Unlock()

	// Deliver anything produced before this client connected
	p.processPendingMessages(sessionID, messageCh)

	// Send the endpoint event pointing the client at the POST endpoint
	endpointURL := fmt.Sprintf("%s?session_id=%s", HTTPMessagesEndpoint, sessionID)
	endpointMsg := NewSSEMessage("endpoint", endpointURL)
	fmt.Fprint(w, endpointMsg.ToSSEString())
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	keepAliveTicker := time.NewTicker(30 * time.Second)
	defer keepAliveTicker.Stop()

	go func() {
		select {
		case <-ctx.Done():
		case <-p.shutdownCh:
			cancel()
		}
		p.sseClientsMutex.Lock()
		if client, exists := p.sseClients[sessionID]; exists {
			delete(p.sseClients, sessionID)
			close(client.MessageCh)
		}
		p.sseClientsMutex.Unlock()
		logger.Infof("Client %s disconnected", sessionID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageCh:
			if !ok {
				return
			}
			fmt.Fprint(w, msg)
			flusher.Flush()
		case <-keepAliveTicker.C:
			// SSE comment as keep-alive
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// handlePostRequest handles a POST request with a JSON-RPC message.
func (p *HTTPSSEProxy) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	p.sseClientsMutex.RLock()
	_, exists := p.sseClients[sessionID]
	p.sseClientsMutex.RUnlock()

	if !exists {
		http.Error(w, "Could not find session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error reading request body: %v", err), http.StatusInternalServerError)
		return
	}

	msg, err := jsonrpc2.DecodeMessage(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error parsing JSON-RPC message: %v", err), http.StatusBadRequest)
		return
	}

	LogMessage(msg)

	// Record where the eventual reply should go
	if req, ok := msg.(*jsonrpc2.Request); ok && req.IsCall() {
		p.RegisterPendingRequest(req.ID, sessionID)
	}

	if err := p.SendMessageToDestination(msg); err != nil {
		http.Error(w, "Failed to send message to destination", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	if _, err := w.Write([]byte("Accepted")); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

// sendSSEEventToSession sends an SSE event to a single session.
func (p *HTTPSSEProxy) sendSSEEventToSession(sessionID string, msg *SSEMessage) error {
	sseString := msg.ToSSEString()

	// Hold the read lock while sending so the channel cannot be closed
	// underneath us; closing happens under the write lock.
	p.sseClientsMutex.RLock()
	defer p.sseClientsMutex.RUnlock()

	client, exists := p.sseClients[sessionID]
	if !exists {
		// The session closed before the reply arrived; queue it so a
		// future subscriber can still observe it.
		p.pendingMutex.Lock()
		p.pendingMessages = append(p.pendingMessages, NewPendingSSEMessage(msg.WithTargetClientID(sessionID)))
		p.pendingMutex.Unlock()
		return nil
	}

	select {
	case client.MessageCh <- sseString:
		return nil
	default:
		return fmt.Errorf("failed to send message to session %s (channel full)", sessionID)
	}
}

// broadcastSSEEvent sends an SSE event to all connected clients, queueing
// it when nobody is connected yet.
func (p *HTTPSSEProxy) broadcastSSEEvent(msg *SSEMessage) error {
	p.sseClientsMutex.RLock()
	hasClients := len(p.sseClients) > 0
	p.sseClientsMutex.RUnlock()

	if !hasClients {
		p.pendingMutex.Lock()
		p.pendingMessages = append(p.pendingMessages, NewPendingSSEMessage(msg))
		p.pendingMutex.Unlock()
		return nil
	}

	sseString := msg.ToSSEString()

	p.sseClientsMutex.Lock()
	defer p.sseClientsMutex.Unlock()

	for clientID, client := range p.sseClients {
		select {
		case client.MessageCh <- sseString:
			// Message sent successfully
		default:
			// Channel is full or closed, remove the client
			delete(p.sseClients, clientID)
			close(client.MessageCh)
			logger.Infof("Client %s removed (channel full or closed)", clientID)
		}
	}

	return nil
}

// processPendingMessages delivers queued messages to a newly connected client.
func (p *HTTPSSEProxy) processPendingMessages(sessionID string, messageCh chan<- string) {
	p.pendingMutex.Lock()
	defer p.pendingMutex.Unlock()

	if len(p.pendingMessages) == 0 {
		return
	}

	for _, pendingMsg := range p.pendingMessages {
		select {
		case messageCh <- pendingMsg.Message.ToSSEString():
			// Message sent successfully
		default:
			logger.Errorf("Failed to send pending message to client %s (channel full)", sessionID)
			return
		}
	}

	p.pendingMessages = nil
}
