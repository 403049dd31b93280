// Package engine provides a thin JSON-RPC session against the Qlik engine
// websocket service. It is deliberately minimal: one session per
// connection, strictly sequential calls, no shared use across goroutines.
package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/qrs"
)

// Websocket timeout constants following Gorilla best practices
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from the engine (load scripts can be big)
	maxMessageSize = 8 * 1024 * 1024
)

// Session is one engine websocket connection. Calls suspend at every
// round trip; there is no implicit overall timeout, but each call honors
// its context deadline.
type Session struct {
	conn   *websocket.Conn
	nextID int
	log    *zap.SugaredLogger
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Handle  int         `json:"handle"`
	Params  interface{} `json:"params"`
}

type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Parameter string `json:"parameter"`
}

// Dial opens a websocket to the engine for the given app (empty appID
// connects to the global engineData endpoint).
func Dial(ctx context.Context, session *qrs.Session, appID string, log *zap.SugaredLogger) (*Session, error) {
	dialer := websocket.Dialer{
		TLSClientConfig:  session.TLSConfig(),
		HandshakeTimeout: 30 * time.Second,
	}

	header := http.Header{}
	// The schema version rides on the handshake so the engine (and any
	// proxy in front of it) can see which API surface the client expects
	if session.SchemaVersion != "" {
		header.Set("X-Qlik-Schema-Version", session.SchemaVersion)
	}
	if session.AuthType == "jwt" {
		header.Set("Authorization", "Bearer "+session.JWT)
	} else {
		header.Set("X-Qlik-User",
			"UserDirectory="+session.UserDirectory+"; UserId="+session.UserID)
	}

	conn, _, err := dialer.DialContext(ctx, session.EngineURL(appID), header)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransport, "engine dial: %v", err)
	}
	conn.SetReadLimit(maxMessageSize)

	s := &Session{
		conn:   conn,
		nextID: 1,
		log:    log.Named("engine"),
	}

	// The engine greets with an OnConnected notification before the first
	// request is answered; drain it so Call sees matched ids only
	var greeting map[string]interface{}
	if err := conn.ReadJSON(&greeting); err != nil {
		conn.Close()
		return nil, errors.Wrapf(errors.ErrTransport, "engine greeting: %v", err)
	}
	s.log.Debugw("Engine session opened", "app", appID, "schema", session.SchemaVersion)

	return s, nil
}

// Call performs one JSON-RPC round trip against the given object handle
// (-1 is the global handle) and decodes the result into out.
func (s *Session) Call(ctx context.Context, handle int, method string, params, out interface{}) error {
	id := s.nextID
	s.nextID++

	if params == nil {
		params = []interface{}{}
	}
	req := request{JSONRPC: "2.0", ID: id, Method: method, Handle: handle, Params: params}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteJSON(req); err != nil {
		return errors.Wrapf(errors.ErrTransport, "engine %s: %v", method, err)
	}

	if d, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(d)
	} else {
		s.conn.SetReadDeadline(time.Time{})
	}

	// Skip unsolicited change notifications until our id answers
	for {
		var resp response
		if err := s.conn.ReadJSON(&resp); err != nil {
			return errors.Wrapf(errors.ErrTransport, "engine %s: %v", method, err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return errors.Newf("engine %s failed: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		if out == nil {
			return nil
		}
		return errors.Wrapf(json.Unmarshal(resp.Result, out), "engine %s: decode result", method)
	}
}

// Close reports whether the session shut down cleanly.
func (s *Session) Close() error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// docHandle is the result shape of OpenDoc
type docHandle struct {
	QReturn struct {
		QHandle int `json:"qHandle"`
	} `json:"qReturn"`
}

// GetLoadScript opens an app and returns its load script. This is the one
// engine operation Ctrl-Q's core collaborators need.
func GetLoadScript(ctx context.Context, session *qrs.Session, appID string, log *zap.SugaredLogger) (string, error) {
	s, err := Dial(ctx, session, appID, log)
	if err != nil {
		return "", err
	}
	defer s.Close()

	var doc docHandle
	if err := s.Call(ctx, -1, "OpenDoc", []interface{}{appID}, &doc); err != nil {
		return "", err
	}

	var script struct {
		QScript string `json:"qScript"`
	}
	if err := s.Call(ctx, doc.QReturn.QHandle, "GetScript", nil, &script); err != nil {
		return "", err
	}
	return script.QScript, nil
}
