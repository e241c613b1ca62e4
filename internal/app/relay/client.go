/*
Package relay implements the caption and reaction message protocol carried over a room's data channel.

This file defines the Client, one member's websocket connection to the hub. ReadPump
validates inbound frames and hands them to the Room; WritePump drains the send
queue and keeps the connection alive with pings.
*/
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"callinvite/internal/app/participant"
	"callinvite/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong message from the peer.
	pongWait = 60 * time.Second

	// frequency at which Ping messages are sent.
	pingPeriod = (pongWait * 9) / 10

	// MaxFrameSize is the largest frame a member may send.
	MaxFrameSize = 16 << 10

	sendQueueSize = 256

	// WsCloseCodeSessionKicked signals that the session was replaced by a newer
	// connection with the same identity.
	WsCloseCodeSessionKicked = 4001
)

// Client is one member's connection to the hub.
type Client struct {
	room        *Room
	conn        *websocket.Conn
	participant participant.Participant

	// send queues frames for WritePump. It is closed exactly once, by the room.
	send chan []byte

	closeOnce   sync.Once
	closeCode   int
	closeReason string

	logger zerolog.Logger
}

// NewClient wraps an upgraded connection for p.
func NewClient(conn *websocket.Conn, p participant.Participant) *Client {
	return &Client{
		conn:        conn,
		participant: p,
		send:        make(chan []byte, sendQueueSize),
		closeCode:   websocket.CloseNormalClosure,
		logger:      logx.Component("relay_client").With().Str("identity", p.Identity).Logger(),
	}
}

// Participant returns the member behind this connection.
func (c *Client) Participant() participant.Participant {
	return c.participant
}

// closeSend records the close frame to send and closes the queue.
func (c *Client) closeSend(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.send)
	})
}

// ReadPump reads frames until the connection fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(MaxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		c.processInboundFrame(data)
	}
}

func (c *Client) cleanupOnDisconnect() {
	select {
	case c.room.unregister <- c:
	case <-c.room.done:
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// processInboundFrame validates a frame and queues it for fan-out.
// Frames whose envelope does not decode are dropped.
func (c *Client) processInboundFrame(data []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Debug().Err(err).Msg("Dropping malformed frame")
		return
	}

	if _, ok := Decode(frame.Payload); !ok {
		c.logger.Debug().Msg("Dropping frame with undecodable envelope")
		return
	}

	out, err := json.Marshal(HubFrame{
		From:    c.participant.Identity,
		Name:    c.participant.Name,
		Payload: frame.Payload,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal hub frame")
		return
	}

	d := delivery{sender: c, frame: out, reliable: frame.Reliable}
	if frame.Reliable {
		select {
		case c.room.broadcast <- d:
		case <-c.room.done:
		}
		return
	}

	select {
	case c.room.broadcast <- d:
	default:
		c.logger.Debug().Msg("Broadcast queue full, dropping unreliable frame")
	}
}

// WritePump writes queued frames and pings until the queue is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame reports whether WritePump should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
		if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
