// Websocket preview endpoint for processed frames
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"async-frame-engine/internal/frame"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

// Envelope is the CBOR wire format for one preview frame.
type Envelope struct {
	Type     string `cbor:"type"`
	Producer string `cbor:"producer"`
	Seq      uint64 `cbor:"seq"`
	Width    int    `cbor:"width"`
	Height   int    `cbor:"height"`
	JPEG     []byte `cbor:"jpeg"`
}

// Server broadcasts the latest processed frames to websocket clients.
// Slow clients miss frames rather than backing up the pipeline:
// writes are best-effort with a deadline.
type Server struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]*sync.Mutex
	log      *logrus.Entry
}

func New(logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		log:     logger.WithField("component", "preview"),
	}
}

// Run serves the websocket endpoint until ctx is cancelled.
func (s *Server) Run(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.log.WithField("port", port).Info("preview server listening")
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Publish encodes the frame and broadcasts it. The caller keeps
// ownership of f; Publish does not retain it past the call.
func (s *Server) Publish(f *frame.Frame) {
	if f == nil || f.Empty() {
		return
	}

	mat := f.Mat()
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		s.log.WithError(err).Debug("jpeg encode failed")
		return
	}
	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())
	buf.Close()

	payload, err := cbor.Marshal(Envelope{
		Type:     "frame",
		Producer: f.ID().ProducerID,
		Seq:      f.ID().Seq,
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		JPEG:     jpeg,
	})
	if err != nil {
		s.log.WithError(err).Debug("cbor encode failed")
		return
	}

	s.broadcast(payload)
}

func (s *Server) broadcast(payload []byte) {
	s.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for c, m := range s.clients {
		conns[c] = m
	}
	s.mu.Unlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.BinaryMessage, payload)
		writeMu.Unlock()
		if err != nil {
			s.drop(conn)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writeMu := &sync.Mutex{}
	s.mu.Lock()
	s.clients[conn] = writeMu
	s.mu.Unlock()
	s.log.WithField("remote", conn.RemoteAddr().String()).Info("preview client connected")

	go s.ping(conn, writeMu)

	// Reader loop only services control frames; clients do not send
	// data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(conn)
}

func (s *Server) ping(conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for range ticker.C {
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		writeMu.Unlock()
		if err != nil {
			s.drop(conn)
			return
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	_, known := s.clients[conn]
	delete(s.clients, conn)
	s.mu.Unlock()

	if known {
		_ = conn.Close()
		s.log.WithField("remote", conn.RemoteAddr().String()).Info("preview client disconnected")
	}
}
