/*
Package relay implements the caption and reaction message protocol carried over a room's data channel.

This file defines the Manager, which tracks every active relay room.

Rooms are created lazily on the first join and removed once their Run loop exits,
either after the inactivity timeout or on shutdown.
*/
package relay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"callinvite/internal/pkg/logx"
)

// ErrHubClosed is returned by Join after Shutdown.
var ErrHubClosed = errors.New("relay: hub is shut down")

// maxJoinAttempts bounds retries when a join races with a room shutting down.
const maxJoinAttempts = 3

// Manager coordinates all active relay rooms.
type Manager struct {
	// rooms maps room name to its live Room.
	rooms map[string]*Room

	// mu protects rooms and closed.
	mu     sync.Mutex
	closed bool

	// cleanup receives rooms whose Run loop has finished.
	cleanup chan *Room

	// stop is closed on Shutdown.
	stop chan struct{}

	// wg tracks the cleanup loop and every room's Run loop.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its cleanup loop.
func NewManager() *Manager {
	m := &Manager{
		rooms:   make(map[string]*Room),
		cleanup: make(chan *Room, 16),
		stop:    make(chan struct{}),
		logger:  logx.Component("relay_manager"),
	}

	m.wg.Add(1)
	go m.runCleanupLoop()

	return m
}

// runCleanupLoop removes finished rooms until Shutdown.
func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	for {
		select {
		case room := <-m.cleanup:
			m.deleteRoom(room)
		case <-m.stop:
			return
		}
	}
}

// deleteRoom removes room unless a newer room with the same name has replaced it.
func (m *Manager) deleteRoom(room *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.rooms[room.Name]; ok && current == room {
		delete(m.rooms, room.Name)
		m.logger.Info().Str("room", room.Name).Msg("Room removed.")
	}
}

// getOrCreateRoom returns the live room called name, starting it if needed.
func (m *Manager) getOrCreateRoom(name string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrHubClosed
	}

	if room, ok := m.rooms[name]; ok {
		return room, nil
	}

	room := NewRoom(name, m.cleanup, m.stop)
	m.rooms[name] = room

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		room.Run()
	}()

	m.logger.Info().Str("room", name).Msg("New room created and started.")
	return room, nil
}

// Join registers client with the room called name, creating the room on demand.
func (m *Manager) Join(name string, client *Client) error {
	for range maxJoinAttempts {
		room, err := m.getOrCreateRoom(name)
		if err != nil {
			return err
		}

		client.room = room
		if room.RegisterClient(client) {
			return nil
		}

		// The room stopped between lookup and registration.
		m.deleteRoom(room)
	}

	return errors.New("relay: room unavailable")
}

// GetRoom returns the live room called name, or nil.
func (m *Manager) GetRoom(name string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rooms[name]
}

// Closed reports whether Shutdown has been called.
func (m *Manager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rooms)
}

// Shutdown stops every room and waits for all loops to exit. It is idempotent.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true

	m.logger.Info().Int("rooms", len(m.rooms)).Msg("Shutting down relay manager...")
	for _, room := range m.rooms {
		room.Stop()
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()

	m.logger.Info().Msg("Relay manager shutdown complete.")
}
