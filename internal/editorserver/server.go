// Package editorserver exposes editing sessions to the canvas over a
// WebSocket.
//
// Each connection to /ws owns one session. Every inbound text message is a
// session.Intent, optionally tagged with a request_id that is echoed on the
// reply. Replies are either {"type":"result"} carrying the session.Result or
// {"type":"error"} carrying a stable code and a message. A view is pushed
// right after the connection opens.
package editorserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/connection"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/docstore"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/specialistvlad/gridflow/internal/sessionstore"
	"github.com/specialistvlad/gridflow/internal/workflow"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsQueueSize = 32
)

// Message types sent to the client.
const (
	TypeReady  = "ready"
	TypeResult = "result"
	TypeError  = "error"
	TypePong   = "pong"
)

// Error codes sent to the client.
const (
	CodeInvalidArgument    = "invalid_argument"
	CodeInvalidConnection  = "invalid_connection"
	CodeUnknownNode        = "unknown_node"
	CodeUnknownEdge        = "unknown_edge"
	CodeMalformedDocument  = "malformed_document"
	CodeNotFound           = "not_found"
	CodeFailedPrecondition = "failed_precondition"
	CodeUnimplemented      = "unimplemented"
	CodeUnauthenticated    = "unauthenticated"
	CodeInternal           = "internal"
)

type inbound struct {
	session.Intent
	RequestID string `json:"request_id,omitempty"`
}

type outbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	View      *session.View   `json:"view,omitempty"`
	Result    *session.Result `json:"result,omitempty"`
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Server serves /ws and /health.
type Server struct {
	factory  session.Factory
	sessions *sessionstore.Store
	upgrader websocket.Upgrader
}

// New creates a server that opens sessions with factory and tracks them in
// sessions.
func New(factory session.Factory, sessions *sessionstore.Store) *Server {
	return &Server{
		factory:  factory,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP routes of the server. Requests carry the logger
// of ctx.
func (s *Server) Handler(ctx context.Context) http.Handler {
	logger := ctxlog.FromContext(ctx)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))
	})
}

// Close drops every live session.
func (s *Server) Close(ctx context.Context) error {
	return s.sessions.CloseAll(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(r.Context()).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.Header().Set("X-Gridflow-Sessions", fmt.Sprint(s.sessions.Len()))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed.", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, err := s.factory.NewSession(ctx)
	if err != nil {
		logger.Error("Failed to create session.", "error", err)
		_ = conn.WriteJSON(outbound{Type: TypeError, Code: CodeInternal, Message: err.Error()})
		return
	}
	s.sessions.Put(sess)
	defer func() {
		if err := s.sessions.Remove(context.WithoutCancel(ctx), sess.ID()); err != nil {
			logger.Warn("Failed to close session.", "session_id", sess.ID(), "error", err)
		}
	}()

	logger = logger.With("session_id", sess.ID())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("Editor connected.", "remote_addr", r.RemoteAddr)

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		logger.Debug("Failed to set read deadline.", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan outbound, wsQueueSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	view, err := sess.View(ctx)
	if err != nil {
		push(ctx, writeCh, errorMessage("", err))
	} else {
		push(ctx, writeCh, outbound{Type: TypeReady, SessionID: sess.ID(), View: &view})
	}

	// Load a saved workflow right away when asked to.
	if id := strings.TrimSpace(r.URL.Query().Get("workflow_id")); id != "" {
		s.apply(ctx, sess, writeCh, inbound{Intent: session.Intent{Type: session.IntentLoad, WorkflowID: id}})
	}

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Editor connection closed unexpectedly.", "error", err)
			}
			cancel()
			<-writerDone
			logger.Info("Editor disconnected.")
			return
		}
		s.apply(ctx, sess, writeCh, in)
	}
}

func (s *Server) apply(ctx context.Context, sess session.Session, writeCh chan<- outbound, in inbound) {
	msgType := session.IntentType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	switch msgType {
	case "":
		push(ctx, writeCh, outbound{Type: TypeError, RequestID: in.RequestID, Code: CodeInvalidArgument, Message: "type is required"})
		return
	case "ping":
		push(ctx, writeCh, outbound{Type: TypePong, RequestID: in.RequestID})
		return
	}
	in.Type = msgType

	res, err := sess.Apply(ctx, in.Intent)
	if err != nil {
		push(ctx, writeCh, errorMessage(in.RequestID, err))
		return
	}
	push(ctx, writeCh, outbound{Type: TypeResult, RequestID: in.RequestID, Result: &res})
}

// push queues out for the writer, giving up once the connection is gone.
func push(ctx context.Context, writeCh chan<- outbound, out outbound) {
	select {
	case writeCh <- out:
	case <-ctx.Done():
	}
}

func errorMessage(requestID string, err error) outbound {
	return outbound{Type: TypeError, RequestID: requestID, Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode maps an error to the code sent to the client.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, workflow.ErrMalformedDocument):
		return CodeMalformedDocument
	case errors.Is(err, connection.ErrInvalidConnection):
		return CodeInvalidConnection
	case errors.Is(err, workflow.ErrUnknownNode):
		return CodeUnknownNode
	case errors.Is(err, workflow.ErrUnknownEdge):
		return CodeUnknownEdge
	case errors.Is(err, docstore.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, session.ErrNotSaved):
		return CodeFailedPrecondition
	case errors.Is(err, docstore.ErrUnsupported):
		return CodeUnimplemented
	case docstore.IsStatus(err, http.StatusUnauthorized), docstore.IsStatus(err, http.StatusForbidden):
		return CodeUnauthenticated
	case errors.Is(err, session.ErrBadIntent),
		errors.Is(err, session.ErrUnknownIntent),
		errors.Is(err, catalog.ErrUnknownParameter),
		errors.Is(err, catalog.ErrInvalidParameter),
		errors.Is(err, docstore.ErrInvalid):
		return CodeInvalidArgument
	}
	return CodeInternal
}
