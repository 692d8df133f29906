package cdp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"

	"github.com/liuxd6825/webaccept/log"
)

const wsWriteBufferSize = 1 << 20

// errConnectionClosed is returned for commands still waiting for a reply
// when the websocket goes away.
var errConnectionClosed = errors.New("devtools connection closed")

var _ cdp.Executor = &connection{}

// connection is a websocket connection to the browser DevTools endpoint.
// Replies are routed back to callers by message id; events are only logged.
type connection struct {
	logger *log.Logger
	conn   *websocket.Conn
	sendCh chan *cdproto.Message
	done   chan struct{}
	msgID  int64

	mu      sync.Mutex
	pending map[int64]chan *cdproto.Message
	err     error

	closeOnce sync.Once
}

func dial(ctx context.Context, wsURL string, logger *log.Logger) (*connection, error) {
	wsd := websocket.Dialer{
		HandshakeTimeout: 60 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
		WriteBufferSize:  wsWriteBufferSize,
	}
	conn, _, err := wsd.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	c := &connection{
		logger:  logger,
		conn:    conn,
		sendCh:  make(chan *cdproto.Message, 32),
		done:    make(chan struct{}),
		pending: make(map[int64]chan *cdproto.Message),
	}
	go c.recvLoop()
	go c.sendLoop()
	return c, nil
}

func (c *connection) recvLoop() {
	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		c.logger.Tracef("cdp:recv", "<- %s", buf)

		var msg cdproto.Message
		decoder := jlexer.Lexer{Data: buf}
		msg.UnmarshalEasyJSON(&decoder)
		if err := decoder.Error(); err != nil {
			c.logger.Errorf("cdp", "decoding message: %v", err)
			continue
		}

		switch {
		case msg.ID != 0:
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ok {
				ch <- &msg
			}
		case msg.Method == cdproto.EventTargetDetachedFromTarget:
			c.logger.Debugf("cdp", "target detached: %s", msg.Params)
		case msg.Method != "":
			// events are not subscribed to; page state is polled instead
		default:
			c.logger.Errorf("cdp", "ignoring malformed incoming message (missing id or method): %s", buf)
		}
	}
}

func (c *connection) sendLoop() {
	for {
		select {
		case msg := <-c.sendCh:
			encoder := jwriter.Writer{}
			msg.MarshalEasyJSON(&encoder)
			buf, err := encoder.BuildBytes()
			if err != nil {
				c.fail(msg.ID, err)
				continue
			}
			c.logger.Tracef("cdp:send", "-> %s", buf)
			if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// fail delivers err to the caller waiting for id.
func (c *connection) fail(id int64, err error) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		ch <- &cdproto.Message{ID: id, Error: &cdproto.Error{Message: err.Error()}}
	}
}

func (c *connection) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

// close sends a close frame and tears the connection down.
func (c *connection) close() error {
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.shutdown(errConnectionClosed)
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// Execute implements cdp.Executor for the browser target.
func (c *connection) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return c.execute(ctx, "", method, params, res)
}

// execute sends method to the target attached as sessionID, or to the
// browser when sessionID is empty, and waits for its reply.
func (c *connection) execute(
	ctx context.Context, sessionID target.SessionID, method string,
	params easyjson.Marshaler, res easyjson.Unmarshaler,
) error {
	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return err
		}
	}

	id := atomic.AddInt64(&c.msgID, 1)
	ch := make(chan *cdproto.Message, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	msg := &cdproto.Message{
		ID:        id,
		SessionID: sessionID,
		Method:    cdproto.MethodType(method),
		Params:    buf,
	}
	select {
	case c.sendCh <- msg:
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}

	select {
	case reply, ok := <-ch:
		switch {
		case !ok || reply == nil:
			return c.closedErr()
		case reply.Error != nil:
			return reply.Error
		case res != nil:
			return easyjson.Unmarshal(reply.Result, res)
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

func (c *connection) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *connection) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil || errors.Is(c.err, errConnectionClosed) {
		return errConnectionClosed
	}
	return errors.Join(errConnectionClosed, c.err)
}

// sessionExecutor routes commands to one attached target.
type sessionExecutor struct {
	conn      *connection
	sessionID target.SessionID
}

var _ cdp.Executor = sessionExecutor{}

func (s sessionExecutor) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return s.conn.execute(ctx, s.sessionID, method, params, res)
}
