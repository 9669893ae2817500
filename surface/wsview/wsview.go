// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wsview serves renderer frames to a browser.
//
// The server answers "/" with a small viewer page and "/ws" with a
// websocket. Every presented frame is encoded once as lossless WebP and
// sent to all connected viewers as a binary message. Keyboard, pointer and
// resize events from the viewers come back as JSON and are delivered
// through the gpucontext.EventSource methods, so the server plugs into
// fractal.NewCollector like a native window.
//
// Importing the package registers the "ws" surface:
//
//	import _ "github.com/gogpu/fractal/surface/wsview"
//
//	s, err := surface.NewSurfaceByName("ws", surface.Options{Addr: ":8080"})
package wsview

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gogpu/gpucontext"
	"github.com/gorilla/websocket"

	"github.com/gogpu/fractal/surface"
)

//go:embed viewer.html
var viewerPage []byte

const writeTimeout = 2 * time.Second

var (
	_ surface.Surface        = (*Server)(nil)
	_ gpucontext.EventSource = (*Server)(nil)
)

// Server is a websocket presenter and event source.
type Server struct {
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	srv      *http.Server
	ln       net.Listener

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	closed  bool

	h handlers

	width, height int
	frames        atomic.Uint64
	log           atomic.Pointer[slog.Logger]
}

// New returns a Server that is not listening. Serve it with Handler.
// opts.Width and opts.Height become the native size reported to the
// renderer.
func New(opts surface.Options) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: make(map[*websocket.Conn]*sync.Mutex),
		width:   opts.Width,
		height:  opts.Height,
	}
	s.SetLogger(nil)
	s.mux.HandleFunc("/", s.serveViewer)
	s.mux.HandleFunc("/ws", s.serveWebSocket)
	return s
}

// Listen returns a Server serving on opts.Addr.
func Listen(opts surface.Options) (*Server, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("%w: ws viewer needs an address", surface.ErrInvalidOptions)
	}
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("wsview: listen: %w", err)
	}
	s := New(opts)
	s.ln = ln
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger().Error("wsview: serve", "err", err)
		}
	}()
	s.logger().Info("wsview: listening", "addr", ln.Addr().String())
	return s, nil
}

// SetLogger sets the logger of the server. Nil silences it.
func (s *Server) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	s.log.Store(l)
}

func (s *Server) logger() *slog.Logger { return s.log.Load() }

// Handler returns the HTTP handler serving the viewer and the websocket.
func (s *Server) Handler() http.Handler { return s.mux }

// Addr returns the listen address, or "" for a Server created by New.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// NativeSize returns the size given in the options.
func (s *Server) NativeSize() (int, int) { return s.width, s.height }

// Clients returns the number of connected viewers.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Frames returns the number of frames sent to at least one viewer.
func (s *Server) Frames() uint64 { return s.frames.Load() }

func (s *Server) serveViewer(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(viewerPage)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger().Warn("wsview: upgrade", "err", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.clients[conn] = &sync.Mutex{}
	s.mu.Unlock()
	s.logger().Info("wsview: viewer connected", "remote", conn.RemoteAddr().String())

	defer func() {
		s.drop(conn)
		s.h.dispatch(message{Type: "focus", Focused: false})
		s.logger().Info("wsview: viewer disconnected", "remote", conn.RemoteAddr().String())
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		m, err := decode(data)
		if err != nil {
			s.logger().Debug("wsview: ignoring message", "err", err)
			continue
		}
		s.h.dispatch(m)
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
}

// Present encodes frame and sends it to every viewer. Viewers whose write
// fails are disconnected. Without viewers the frame is skipped.
func (s *Server) Present(frame *image.RGBA) error {
	s.mu.RLock()
	closed, n := s.closed, len(s.clients)
	s.mu.RUnlock()
	if closed {
		return surface.ErrClosed
	}
	if n == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, frame, nil); err != nil {
		return fmt.Errorf("wsview: encode frame: %w", err)
	}
	data := buf.Bytes()

	var failed []*websocket.Conn
	s.mu.RLock()
	for conn, mu := range s.clients {
		mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := conn.WriteMessage(websocket.BinaryMessage, data)
		mu.Unlock()
		if err != nil {
			s.logger().Warn("wsview: write frame", "remote", conn.RemoteAddr().String(), "err", err)
			failed = append(failed, conn)
		}
	}
	s.mu.RUnlock()

	for _, conn := range failed {
		s.drop(conn)
		_ = conn.Close()
	}
	s.frames.Add(1)
	return nil
}

// Close disconnects every viewer and stops the listener. It is safe to
// call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "renderer closed"),
			time.Now().Add(writeTimeout))
		_ = conn.Close()
	}
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

func init() {
	surface.Register("ws", surface.PriorityWS, func(opts surface.Options) (surface.Surface, error) {
		return Listen(opts)
	})
}
