/*
Package relay implements the caption and reaction message protocol carried over a room's data channel.

This file defines Conn, a websocket client of the hub that implements DataChannel
and delivers the frames of other members as Packets.
*/
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"callinvite/internal/pkg/logx"
)

// ErrConnClosed is returned by Publish after Close.
var ErrConnClosed = errors.New("relay: connection closed")

const packetBuffer = 64

// Conn is a member-side connection to the relay hub.
type Conn struct {
	ws *websocket.Conn

	// writeMu serialises writers; gorilla/websocket allows one concurrent writer.
	writeMu sync.Mutex

	packets chan Packet

	closeOnce sync.Once
	closed    chan struct{}
	readDone  chan struct{}
	readErr   error

	logger zerolog.Logger
}

// RelayURL builds the hub websocket URL for room from an http(s) or ws(s) base URL.
func RelayURL(base, room, accessToken string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("relay: parse base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("relay: unsupported url scheme %q", u.Scheme)
	}

	u = u.JoinPath("relay", room)
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Dial connects to the hub at rawURL (see RelayURL).
func Dial(ctx context.Context, rawURL string) (*Conn, error) {
	ws, res, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if status := handshakeStatus(res); status != 0 {
			return nil, fmt.Errorf("relay: dial: %w (http %d)", err, status)
		}
		return nil, fmt.Errorf("relay: dial: %w", err)
	}

	c := &Conn{
		ws:       ws,
		packets:  make(chan Packet, packetBuffer),
		closed:   make(chan struct{}),
		readDone: make(chan struct{}),
		logger:   logx.Component("relay_conn"),
	}

	ws.SetPingHandler(func(data string) error {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	go c.readLoop()

	return c, nil
}

var _ DataChannel = (*Conn)(nil)

// Publish sends payload to the other members of the room.
func (c *Conn) Publish(ctx context.Context, payload []byte, reliable bool) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	frame, err := json.Marshal(ClientFrame{Reliable: reliable, Payload: payload})
	if err != nil {
		return fmt.Errorf("relay: marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("relay: write frame: %w", err)
	}
	return nil
}

// Packets returns the stream of frames from other members. It is closed when the
// connection ends.
func (c *Conn) Packets() <-chan Packet {
	return c.packets
}

// Err returns the error that ended the read loop, once Packets is closed.
func (c *Conn) Err() error {
	<-c.readDone
	return c.readErr
}

func (c *Conn) readLoop() {
	defer close(c.readDone)
	defer close(c.packets)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.readErr = err
			}
			return
		}

		var frame HubFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug().Err(err).Msg("Dropping malformed hub frame")
			continue
		}

		select {
		case c.packets <- Packet{From: frame.From, Name: frame.Name, Payload: frame.Payload}:
		case <-c.closed:
			return
		}
	}
}

// Close sends a normal close frame and releases the connection. It is idempotent.
func (c *Conn) Close() error {
	var err error

	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.ws.Close()
	})

	return err
}

// IsKicked reports whether err is the close a member receives when its identity
// connected again elsewhere.
func IsKicked(err error) bool {
	return websocket.IsCloseError(err, WsCloseCodeSessionKicked)
}

// handshakeStatus extracts the HTTP status of a failed dial.
func handshakeStatus(res *http.Response) int {
	if res == nil {
		return 0
	}
	return res.StatusCode
}
