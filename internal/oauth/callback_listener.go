package oauth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultAcceptPollInterval bounds how long the accept loop blocks before
	// re-checking for a stop request.
	DefaultAcceptPollInterval = 1 * time.Second

	// maxRequestHeaderBytes caps the request line plus headers.
	maxRequestHeaderBytes = 4096

	// callbackReadHeaderTimeout drops clients that never finish their headers.
	callbackReadHeaderTimeout = 10 * time.Second

	// callbackShutdownTimeout bounds how long Stop waits for an in-flight response.
	callbackShutdownTimeout = 5 * time.Second
)

//go:embed templates/callback_success.html
var callbackSuccessHTML []byte

const callbackBadRequestText = "Missing code parameter\n"

// ListenerStatus is the externally observable state of a CallbackListener.
type ListenerStatus int32

const (
	// ListenerIdle means the listener is not running.
	ListenerIdle ListenerStatus = iota

	// ListenerListening means the listener is waiting for the redirect.
	ListenerListening

	// ListenerReceivedCode means a code was captured; Code returns it.
	ListenerReceivedCode

	// ListenerFailed means the socket could not be opened or serving failed.
	ListenerFailed
)

// String returns the string representation of the listener status.
func (s ListenerStatus) String() string {
	switch s {
	case ListenerIdle:
		return "idle"
	case ListenerListening:
		return "listening"
	case ListenerReceivedCode:
		return "received_code"
	case ListenerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CallbackListener is a one-shot loopback HTTP server that captures the
// authorization code from the provider's redirect.
//
// It binds 127.0.0.1 on an OS-assigned port, so several installs can run
// side by side and nothing is reachable from outside the machine. Requests
// without a code get a 400 and the listener keeps waiting; the first request
// with a code gets the success page and ends the accept loop.
//
// Status and Code are safe to call from any goroutine without blocking,
// which lets a render loop poll the listener once per frame.
type CallbackListener struct {
	// mu serializes Start and Stop.
	mu sync.Mutex

	status atomic.Int32
	code   atomic.Pointer[string]

	// publishMu makes the code store and the status flip one step, and
	// pins them to the current run.
	publishMu sync.Mutex
	current   *listenerRun

	port         int
	pollInterval time.Duration
	logger       *slog.Logger
	listen       func() (*net.TCPListener, error)

	run    *listenerRun
	server *http.Server
	done   chan struct{}
}

// listenerRun is the socket state of one Start/Stop cycle. Handlers close
// over their own run, so a late handler cannot touch a later cycle.
type listenerRun struct {
	tcp      *net.TCPListener
	stop     chan struct{}
	stopOnce sync.Once
}

// closeAccept signals the accept loop and closes the socket, which unblocks
// a pending Accept immediately.
func (r *listenerRun) closeAccept() {
	r.stopOnce.Do(func() {
		close(r.stop)
		_ = r.tcp.Close()
	})
}

func listenLoopback() (*net.TCPListener, error) {
	return net.ListenTCP("tcp4", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
}

// ListenerOption configures a CallbackListener.
type ListenerOption func(*CallbackListener)

// WithAcceptPollInterval overrides DefaultAcceptPollInterval.
func WithAcceptPollInterval(d time.Duration) ListenerOption {
	return func(l *CallbackListener) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithListenerLogger sets the logger used by the listener.
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *CallbackListener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewCallbackListener creates a listener in the Idle state.
func NewCallbackListener(opts ...ListenerOption) *CallbackListener {
	l := &CallbackListener{
		pollInterval: DefaultAcceptPollInterval,
		logger:       slog.Default(),
		listen:       listenLoopback,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start binds the loopback socket and starts the serving goroutine.
// It returns the assigned port. On failure the status becomes Failed and the
// error is also returned; nothing is left running.
func (l *CallbackListener) Start() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return 0, ErrListenerRunning
	}

	tcp, err := l.listen()
	if err != nil {
		l.publishMu.Lock()
		l.current = nil
		l.code.Store(nil)
		l.status.Store(int32(ListenerFailed))
		l.publishMu.Unlock()
		return 0, &AuthError{Kind: ErrorKindListener, Description: "local server failed to start/listen", Err: err}
	}

	run := &listenerRun{tcp: tcp, stop: make(chan struct{})}
	port := tcp.Addr().(*net.TCPAddr).Port
	l.run = run
	l.port = port
	l.done = make(chan struct{})

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l.handleCallback(run, w, r)
		}),
		ReadHeaderTimeout: callbackReadHeaderTimeout,
		MaxHeaderBytes:    maxRequestHeaderBytes,
	}
	server.SetKeepAlivesEnabled(false)
	l.server = server

	accept := &pollingListener{tcp: tcp, stop: run.stop, interval: l.pollInterval}

	l.publishMu.Lock()
	l.current = run
	l.code.Store(nil)
	l.status.Store(int32(ListenerListening))
	l.publishMu.Unlock()

	go func(done chan struct{}) {
		defer close(done)
		err := server.Serve(accept)
		if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return
		}
		if l.markFailed(run) {
			l.logger.Warn("OAuth callback listener stopped unexpectedly",
				"port", port,
				"error", err.Error(),
			)
		}
	}(l.done)

	l.logger.Debug("OAuth callback listener started", "port", port)
	return port, nil
}

// Stop shuts the listener down and waits for the serving goroutine to exit.
// It is idempotent and a no-op on a listener that was never started. After
// Stop returns the status is Idle, the captured code is cleared and the
// socket is closed.
func (l *CallbackListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server == nil {
		l.resetPublished()
		return
	}

	l.run.closeAccept()

	ctx, cancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		l.logger.Debug("OAuth callback listener shutdown incomplete", "error", err.Error())
		_ = l.server.Close()
	}

	<-l.done

	l.logger.Debug("OAuth callback listener stopped", "port", l.port)

	l.server = nil
	l.run = nil
	l.port = 0
	l.resetPublished()
}

func (l *CallbackListener) resetPublished() {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()
	l.current = nil
	l.status.Store(int32(ListenerIdle))
	l.code.Store(nil)
}

// markFailed moves a still-waiting run to Failed. A captured code wins.
func (l *CallbackListener) markFailed(run *listenerRun) bool {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	if l.current != run {
		return false
	}
	return l.status.CompareAndSwap(int32(ListenerListening), int32(ListenerFailed))
}

// publishCode records code as the captured code of run. Only the first
// code of the current run is accepted.
func (l *CallbackListener) publishCode(run *listenerRun, code string) bool {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	if l.current != run || l.Status() != ListenerListening {
		return false
	}
	// The code must be visible before the status flips: consumers read the
	// status first and then the code.
	l.code.Store(&code)
	l.status.Store(int32(ListenerReceivedCode))
	return true
}

// Status returns the current listener status.
func (l *CallbackListener) Status() ListenerStatus {
	return ListenerStatus(l.status.Load())
}

// Code returns the captured authorization code. It is only meaningful once
// Status reports ListenerReceivedCode.
func (l *CallbackListener) Code() string {
	if p := l.code.Load(); p != nil {
		return *p
	}
	return ""
}

// Port returns the port assigned at Start, or 0 when not running.
func (l *CallbackListener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// RedirectURI returns the redirect URI for the running listener.
// It is only valid after Start succeeded.
func (l *CallbackListener) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d", l.Port())
}

func (l *CallbackListener) handleCallback(run *listenerRun, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	code, ok := ExtractCode(r.RequestURI)
	if !ok || !l.publishCode(run, code) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(callbackBadRequestText))
		l.logger.Debug("OAuth callback request rejected", "path", r.URL.Path, "has_code", ok)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(callbackSuccessHTML)

	l.logger.Debug("OAuth callback received authorization code")

	// One-shot: stop accepting. The response above still completes because
	// closing the socket does not touch established connections.
	run.closeAccept()
}

// pollingListener wraps a TCP listener so that Accept wakes up every
// interval to observe stop, mirroring a select() loop with a timeout.
type pollingListener struct {
	tcp      *net.TCPListener
	stop     <-chan struct{}
	interval time.Duration
}

func (p *pollingListener) Accept() (net.Conn, error) {
	for {
		select {
		case <-p.stop:
			return nil, net.ErrClosed
		default:
		}

		if err := p.tcp.SetDeadline(time.Now().Add(p.interval)); err != nil {
			return nil, err
		}

		conn, err := p.tcp.Accept()
		if err == nil {
			return conn, nil
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		return nil, err
	}
}

func (p *pollingListener) Close() error {
	return p.tcp.Close()
}

func (p *pollingListener) Addr() net.Addr {
	return p.tcp.Addr()
}
