package wire

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn wraps a websocket connection with the envelope framing and
// independent send/receive deadlines every wire-layer socket carries.
// Deadline expiry on Recv/RecvResponse surfaces as ErrSocketTimeout;
// operating on a closed connection surfaces as ErrSocketClosed.
type Conn struct {
	ws          *websocket.Conn
	sendTimeout time.Duration
	recvTimeout time.Duration
	closed      atomic.Bool
}

// Accept upgrades an incoming HTTP request to a websocket-backed Conn. Used
// by the listening side: the engine's control, broker, and feed (PUB)
// endpoints, and the pool's surveyor, dispatch (REQ), and ready endpoints.
func Accept(w http.ResponseWriter, r *http.Request, desc SocketDescriptor) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws, desc), nil
}

// Dial opens a websocket-backed Conn to a listening peer. Used by the
// connecting side: a worker's broker (REQ), surveyor (RESPONDENT), dispatch
// (REP), and ready connections, and the pool's feed (SUB) relay.
func Dial(url string, desc SocketDescriptor) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws, desc), nil
}

func newConn(ws *websocket.Conn, desc SocketDescriptor) *Conn {
	c := &Conn{
		ws:          ws,
		sendTimeout: time.Duration(desc.SendTimeoutMs) * time.Millisecond,
		recvTimeout: time.Duration(desc.RecvTimeoutMs) * time.Millisecond,
	}
	if c.sendTimeout <= 0 {
		c.sendTimeout = 30 * time.Second
	}
	if c.recvTimeout <= 0 {
		c.recvTimeout = 30 * time.Second
	}
	return c
}

// Send writes a Request envelope, honoring the connection's send deadline.
func (c *Conn) Send(req Request) error {
	return c.write(req)
}

// SendResponse writes a Response envelope, honoring the connection's send
// deadline.
func (c *Conn) SendResponse(resp Response) error {
	return c.write(resp)
}

func (c *Conn) write(v any) error {
	if c.closed.Load() {
		return ErrSocketClosed
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return translateErr(err)
	}
	return nil
}

// SendRaw writes an already-encoded envelope, honoring the connection's
// send deadline. Used by PUB-side write pumps draining a Subscriber's
// channel, which carries pre-marshaled bytes to avoid re-encoding the
// same broadcast once per subscriber.
func (c *Conn) SendRaw(raw []byte) error {
	if c.closed.Load() {
		return ErrSocketClosed
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return translateErr(err)
	}
	return nil
}

// Recv reads a Request envelope, blocking up to the connection's receive
// deadline.
func (c *Conn) Recv() (Request, error) {
	var req Request
	raw, err := c.read()
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(raw, &req)
	return req, err
}

// RecvResponse reads a Response envelope, blocking up to the connection's
// receive deadline.
func (c *Conn) RecvResponse() (Response, error) {
	var resp Response
	raw, err := c.read()
	if err != nil {
		return resp, err
	}
	err = json.Unmarshal(raw, &resp)
	return resp, err
}

func (c *Conn) read() ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrSocketClosed
	}
	c.ws.SetReadDeadline(time.Now().Add(c.recvTimeout))
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return nil, translateErr(err)
	}
	return raw, nil
}

// Close shuts down the underlying connection. Further Send/Recv calls
// return ErrSocketClosed.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.ws.Close()
}

func translateErr(err error) error {
	if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		return ErrSocketTimeout
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return ErrSocketClosed
	}
	return err
}
