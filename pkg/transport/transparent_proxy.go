package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/stacklok/vibetool/pkg/logger"
)

// TransparentProxy is a transparent HTTP reverse proxy that forwards
// requests to a destination without modifying them.
// It's used by the SSE transport to forward requests to the container's HTTP server.
type TransparentProxy struct {
	// Basic configuration
	port          int
	containerName string
	targetHost    string
	targetPort    int

	// HTTP server
	server *http.Server

	// Mutex for protecting shared state
	mutex sync.Mutex

	// Shutdown channel
	shutdownCh chan struct{}
}

// NewTransparentProxy creates a new transparent proxy.
func NewTransparentProxy(port int, containerName, targetHost string, targetPort int) *TransparentProxy {
	return &TransparentProxy{
		port:          port,
		containerName: containerName,
		targetHost:    targetHost,
		targetPort:    targetPort,
		shutdownCh:    make(chan struct{}),
	}
}

// Start starts the transparent proxy.
func (p *TransparentProxy) Start(_ context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	targetURL, err := url.Parse(fmt.Sprintf("http://%s:%d", p.targetHost, p.targetPort))
	if err != nil {
		return fmt.Errorf("failed to parse target URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)

	// Preserve the original host for the upstream while keeping the
	// default director's path and query handling.
	defaultDirector := proxy.Director
	proxy.Director = func(r *http.Request) {
		originalHost := r.Host
		defaultDirector(r)
		r.Header.Set("X-Forwarded-Host", originalHost)
		r.Header.Set("X-Forwarded-Proto", "http")
	}

	// An upstream failure is surfaced to the caller; the proxy itself
	// never crashes on it.
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Errorf("Transparent proxy error for %s %s: %v", r.Method, r.URL.Path, err)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, "Error: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debugf("Transparent proxy: %s %s -> %s", r.Method, r.URL.Path, targetURL)
		proxy.ServeHTTP(w, r)
	})

	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	go func() {
		logger.Infof("Transparent proxy started for container %s on port %d -> %s:%d",
			p.containerName, p.port, p.targetHost, p.targetPort)

		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Transparent proxy error: %v", err)
		}
	}()

	return nil
}

// Stop stops the transparent proxy.
func (p *TransparentProxy) Stop(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	select {
	case <-p.shutdownCh:
		// Already stopped
	default:
		close(p.shutdownCh)
	}

	if p.server != nil {
		return p.server.Shutdown(ctx)
	}

	return nil
}

// IsRunning checks if the proxy is running.
func (p *TransparentProxy) IsRunning(_ context.Context) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	select {
	case <-p.shutdownCh:
		return false, nil
	default:
		return true, nil
	}
}
