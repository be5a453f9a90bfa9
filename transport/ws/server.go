// Package ws serves conversions over a websocket: the client sends a JSON
// request and then the input file as one binary message, the server
// answers with progress frames and a result or error.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"omevox/builder"
	"omevox/config"
	errs "omevox/define"
)

const (
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"

	handshakeTimeout = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// Message is every text frame the server sends.
type Message struct {
	Type    string `json:"type"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`

	Input  string `json:"input,omitempty"`
	Format string `json:"format,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	Blocks int    `json:"blocks,omitempty"`
}

type Converter interface {
	Convert(ctx context.Context, req builder.Request, report errs.Reporter) (*builder.Output, error)
}

type Server struct {
	conv      Converter
	log       logrus.FieldLogger
	maxUpload int64

	upgrader websocket.Upgrader
}

func NewServer(conv Converter, cfg config.ServerConfig, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		conv:      conv,
		log:       log,
		maxUpload: cfg.MaxUpload,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	if len(cfg.Origins) > 0 {
		allowed := map[string]bool{}
		for _, o := range cfg.Origins {
			allowed[o] = true
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
	return s
}

func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/convert", s.Handler())
	return mux
}

// session serializes writes; progress may be reported from several
// goroutines at once.
type session struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *session) write(typ int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(typ, b)
}

func (c *session) writeJSON(m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, b)
}

func (c *session) close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.maxUpload + 64*1024)
		c := &session{conn: conn}
		log := s.log.WithField("remote", r.RemoteAddr)

		req, err := s.handshake(conn)
		if err != nil {
			log.WithError(err).Info("bad request")
			_ = c.writeJSON(Message{Type: TypeError, Kind: "BadRequest", Message: err.Error()})
			c.close(websocket.ClosePolicyViolation, "bad request")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		// a client going away cancels the job
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		report := errs.ReportFn(func(stage, msg string) {
			_ = c.writeJSON(Message{Type: TypeProgress, Stage: stage, Message: msg})
		})
		out, err := s.conv.Convert(ctx, *req, report)
		if err != nil {
			m := Message{Type: TypeError, Kind: errs.Kind(err), Message: err.Error()}
			var se *errs.StageError
			if errors.As(err, &se) {
				m.Stage = se.Stage
			}
			_ = c.writeJSON(m)
			c.close(websocket.CloseNormalClosure, "")
			return
		}
		if err := c.writeJSON(Message{
			Type:   TypeResult,
			Input:  string(out.Input),
			Format: out.Format,
			Bytes:  len(out.Data),
			Blocks: out.Blocks,
		}); err != nil {
			return
		}
		if err := c.write(websocket.BinaryMessage, out.Data); err != nil {
			log.WithError(err).Warn("result not delivered")
			return
		}
		log.WithFields(logrus.Fields{"name": req.Name, "bytes": len(out.Data)}).Info("conversion served")
		c.close(websocket.CloseNormalClosure, "")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*builder.Request, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	typ, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if typ != websocket.TextMessage {
		return nil, fmt.Errorf("expected a JSON request first")
	}
	var req builder.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	if req.Dir != "" {
		return nil, fmt.Errorf("region directories are not served")
	}
	typ, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if typ != websocket.BinaryMessage {
		return nil, fmt.Errorf("expected the input file as a binary message")
	}
	if int64(len(data)) > s.maxUpload {
		return nil, fmt.Errorf("input of %d bytes exceeds %d", len(data), s.maxUpload)
	}
	req.Data = data
	_ = conn.SetReadDeadline(time.Time{})
	return &req, nil
}
