package editorserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/connection"
	"github.com/specialistvlad/gridflow/internal/docstore"
	"github.com/specialistvlad/gridflow/internal/localsession"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/specialistvlad/gridflow/internal/sessionstore"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv      *httptest.Server
	sessions *sessionstore.Store
	docs     *docstore.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := docstore.NewMemory(nil)
	sessions := sessionstore.New()
	s := New(&localsession.SessionFactory{Docs: docs}, sessions)
	srv := httptest.NewServer(s.Handler(context.Background()))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, sessions: sessions, docs: docs}
}

func (f *fixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func send(t *testing.T, conn *websocket.Conn, in inbound) outbound {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
	return read(t, conn)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
	assert.Equal(t, "0", resp.Header.Get("X-Gridflow-Sessions"))
}

func TestWebSocket_EditingRoundTrip(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "")

	ready := read(t, conn)
	require.Equal(t, TypeReady, ready.Type)
	require.NotNil(t, ready.View)
	assert.NotEmpty(t, ready.SessionID)
	assert.Eventually(t, func() bool { return f.sessions.Len() == 1 }, time.Second, 10*time.Millisecond)

	var ids []string
	for i, k := range []catalog.Kind{catalog.KindBestSellers, catalog.KindLoop, catalog.KindDetailFetch, catalog.KindMerge} {
		out := send(t, conn, inbound{
			RequestID: fmt.Sprintf("add-%d", i),
			Intent:    session.Intent{Type: session.IntentAddNode, Kind: string(k)},
		})
		require.Equal(t, TypeResult, out.Type, out.Message)
		assert.Equal(t, fmt.Sprintf("add-%d", i), out.RequestID)
		ids = append(ids, out.Result.NodeID)
	}
	for i := 0; i+1 < len(ids); i++ {
		out := send(t, conn, inbound{Intent: session.Intent{Type: session.IntentConnect, Source: ids[i], Target: ids[i+1]}})
		require.Equal(t, TypeResult, out.Type, out.Message)
	}

	out := send(t, conn, inbound{Intent: session.Intent{Type: "PING"}})
	assert.Equal(t, TypePong, out.Type)

	out = send(t, conn, inbound{RequestID: "bad", Intent: session.Intent{Type: session.IntentConnect, Source: ids[2], Target: ids[0]}})
	assert.Equal(t, TypeError, out.Type)
	assert.Equal(t, "bad", out.RequestID)
	assert.Equal(t, CodeInvalidConnection, out.Code)

	name := "From the editor"
	out = send(t, conn, inbound{Intent: session.Intent{Type: session.IntentSave, Name: &name}})
	require.Equal(t, TypeResult, out.Type, out.Message)
	workflowID := out.Result.View.WorkflowID
	require.NotEmpty(t, workflowID)
	assert.Contains(t, out.Result.View.Nodes[1].Data, "mergeId")

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.sessions.Len() == 0 }, time.Second, 10*time.Millisecond)

	// A new connection can open the saved workflow directly.
	again := f.dial(t, "?workflow_id="+workflowID)
	ready = read(t, again)
	require.Equal(t, TypeReady, ready.Type)
	loaded := read(t, again)
	require.Equal(t, TypeResult, loaded.Type, loaded.Message)
	assert.Len(t, loaded.Result.View.Nodes, 4)
	assert.Equal(t, workflowID, loaded.Result.View.WorkflowID)
}

func TestWebSocket_Errors(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "")
	read(t, conn)

	testCases := []struct {
		name string
		in   inbound
		code string
	}{
		{"missing type", inbound{}, CodeInvalidArgument},
		{"unknown type", inbound{Intent: session.Intent{Type: "teleport"}}, CodeInvalidArgument},
		{"unknown node", inbound{Intent: session.Intent{Type: session.IntentDeleteNode, NodeID: "ghost"}}, CodeUnknownNode},
		{"run unsupported", inbound{Intent: session.Intent{Type: session.IntentRun, WorkflowID: "wf"}}, CodeUnimplemented},
		{"runs before save", inbound{Intent: session.Intent{Type: session.IntentRuns}}, CodeFailedPrecondition},
		{"load missing", inbound{Intent: session.Intent{Type: session.IntentLoad, WorkflowID: "ghost"}}, CodeNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := send(t, conn, tc.in)
			assert.Equal(t, TypeError, out.Type)
			assert.Equal(t, tc.code, out.Code)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", &connection.Error{Reason: connection.ReasonNotAllowed}), CodeInvalidConnection},
		{fmt.Errorf("%w: %w", workflow.ErrMalformedDocument, connection.ErrInvalidConnection), CodeMalformedDocument},
		{workflow.ErrUnknownEdge, CodeUnknownEdge},
		{fmt.Errorf("bad: %w", catalog.ErrInvalidParameter), CodeInvalidArgument},
		{docstore.ErrInvalid, CodeInvalidArgument},
		{fmt.Errorf("run: %w", &docstore.StatusError{Method: "POST", Path: "/workflows/x/run", Code: 401}), CodeUnauthenticated},
		{&docstore.StatusError{Method: "GET", Path: "/workflows/x", Code: 404}, CodeNotFound},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorCode(tc.err))
		})
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	sessions := sessionstore.New()
	s := New(&localsession.SessionFactory{Docs: f.docs}, sessions)
	sess, err := (&localsession.SessionFactory{Docs: f.docs}).NewSession(context.Background())
	require.NoError(t, err)
	sessions.Put(sess)

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 0, sessions.Len())
}
