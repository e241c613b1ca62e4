/*
Package relay implements the caption and reaction message protocol carried over a room's data channel.

This file defines the Room, the hub for one call. Its Run loop owns membership and
fans every accepted frame out to the other members, shutting down after a period
with nobody connected.
*/
package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"callinvite/internal/app/participant"
	"callinvite/internal/pkg/logx"
)

const (
	broadcastChannelBuffer = 1024

	// RoomInactivityTimeout is how long an empty room stays alive.
	RoomInactivityTimeout = 5 * time.Minute
)

// delivery is one frame queued for fan-out.
type delivery struct {
	sender   *Client
	frame    []byte
	reliable bool
}

// Room is a single relay session.
type Room struct {
	// Name is the media-service room name.
	Name string

	// clients maps identity to the connected member.
	clients map[string]*Client

	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client

	// cleanup notifies the Manager once Run has exited.
	cleanup chan<- *Room

	// managerStop is closed when the Manager shuts down.
	managerStop <-chan struct{}

	// stopChan forces Run to exit.
	stopChan chan struct{}
	stopOnce sync.Once

	// done is closed when Run has exited.
	done chan struct{}

	inactivityTimeout time.Duration

	// mu protects clients for readers outside Run.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRoom creates a Room. Call Run to start it.
func NewRoom(name string, cleanup chan<- *Room, managerStop <-chan struct{}) *Room {
	return &Room{
		Name:              name,
		clients:           make(map[string]*Client),
		broadcast:         make(chan delivery, broadcastChannelBuffer),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		cleanup:           cleanup,
		managerStop:       managerStop,
		stopChan:          make(chan struct{}),
		done:              make(chan struct{}),
		inactivityTimeout: RoomInactivityTimeout,
		logger:            logx.Component("relay_room").With().Str("room", name).Logger(),
	}
}

// Stop makes Run exit and disconnects every member.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info().Msg("Received stop signal. Stopping room immediately.")
		close(r.stopChan)
	})
}

// Run is the room's event loop.
func (r *Room) Run() {
	shutdownTimer := time.NewTimer(r.inactivityTimeout)

	defer func() {
		shutdownTimer.Stop()

		r.mu.Lock()
		for identity, client := range r.clients {
			client.closeSend(websocket.CloseGoingAway, "Room closed")
			delete(r.clients, identity)
		}
		r.mu.Unlock()

		close(r.done)

		select {
		case r.cleanup <- r:
		case <-r.managerStop:
		}

		r.logger.Info().Msg("Room Run loop finished.")
	}()

	for {
		select {
		case client := <-r.register:
			r.handleRegister(client)
			stopTimer(shutdownTimer)

		case client := <-r.unregister:
			if r.removeClient(client, websocket.CloseNormalClosure, "") {
				r.logger.Info().
					Str("identity", client.participant.Identity).
					Int("members", r.memberCount()).
					Msg("Member left room.")
			}

			if r.memberCount() == 0 {
				stopTimer(shutdownTimer)
				shutdownTimer.Reset(r.inactivityTimeout)
			}

		case d := <-r.broadcast:
			r.fanOut(d)

		case <-shutdownTimer.C:
			if r.memberCount() > 0 {
				continue
			}
			r.logger.Info().Dur("timeout", r.inactivityTimeout).Msg("Room inactivity timeout reached.")
			return

		case <-r.stopChan:
			return

		case <-r.managerStop:
			return
		}
	}
}

func (r *Room) handleRegister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity := client.participant.Identity
	if existing, ok := r.clients[identity]; ok {
		r.logger.Warn().
			Str("identity", identity).
			Msg("Identity already connected. Closing old connection for replacement.")

		existing.closeSend(WsCloseCodeSessionKicked, "Session replaced by new connection.")
	}

	r.clients[identity] = client

	r.logger.Info().
		Str("identity", identity).
		Int("members", len(r.clients)).
		Msg("Member joined room.")
}

// removeClient deletes client if it is still the current connection for its identity.
func (r *Room) removeClient(client *Client, code int, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[client.participant.Identity]
	if !ok || current != client {
		return false
	}

	delete(r.clients, client.participant.Identity)
	client.closeSend(code, reason)
	return true
}

// fanOut queues d for every member except its sender. A member whose queue is full
// loses unreliable frames; for reliable frames it is disconnected instead.
func (r *Room) fanOut(d delivery) {
	var slow []*Client

	r.mu.RLock()
	for _, client := range r.clients {
		if client == d.sender {
			continue
		}

		select {
		case client.send <- d.frame:
		default:
			if d.reliable {
				slow = append(slow, client)
			} else {
				client.logger.Debug().Msg("Send queue full, dropping unreliable frame.")
			}
		}
	}
	r.mu.RUnlock()

	for _, client := range slow {
		client.logger.Warn().Msg("Send queue full on reliable frame, disconnecting member.")
		r.removeClient(client, websocket.CloseTryAgainLater, "Relay queue overflow")
	}
}

// RegisterClient hands client to the Run loop. It reports false when the room has
// already stopped.
func (r *Room) RegisterClient(client *Client) bool {
	select {
	case r.register <- client:
		return true
	case <-r.done:
		return false
	}
}

// Members returns the participants currently connected.
func (r *Room) Members() []participant.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]participant.Participant, 0, len(r.clients))
	for _, c := range r.clients {
		members = append(members, c.participant)
	}
	return members
}

func (r *Room) memberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
