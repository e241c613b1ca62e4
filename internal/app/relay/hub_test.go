package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callinvite/internal/app/participant"
)

func newTestHub(t *testing.T) (*Manager, string) {
	t.Helper()

	m := NewManager()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		p := participant.Participant{Identity: r.URL.Query().Get("id"), Name: r.URL.Query().Get("name")}
		client := NewClient(conn, p)
		if err := m.Join(path.Base(r.URL.Path), client); err != nil {
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	}))

	t.Cleanup(func() {
		m.Shutdown()
		srv.Close()
	})

	return m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialMember(t *testing.T, base, room, id string) *Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, base+"/relay/"+room+"?id="+id+"&name="+strings.ToUpper(id))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitMembers(t *testing.T, m *Manager, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		r := m.GetRoom(room)
		return r != nil && len(r.Members()) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func receive(t *testing.T, c *Conn) Packet {
	t.Helper()
	select {
	case p, ok := <-c.Packets():
		require.True(t, ok, "connection closed")
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
		return Packet{}
	}
}

func assertNoPacket(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case p := <-c.Packets():
		t.Fatalf("unexpected packet %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubRelaysToOtherMembersOnly(t *testing.T) {
	m, base := newTestHub(t)

	a := dialMember(t, base, "r1", "a")
	b := dialMember(t, base, "r1", "b")
	waitMembers(t, m, "r1", 2)

	payload, err := Encode(&CaptionMessage{Text: "hello", IsFinal: true})
	require.NoError(t, err)
	require.NoError(t, a.Publish(context.Background(), payload, true))

	p := receive(t, b)
	assert.Equal(t, "a", p.From)
	assert.Equal(t, "A", p.Name)
	msg, ok := Decode(p.Payload)
	require.True(t, ok)
	assert.Equal(t, &CaptionMessage{Text: "hello", IsFinal: true}, msg)

	assertNoPacket(t, a)
}

func TestHubIsolatesRooms(t *testing.T) {
	m, base := newTestHub(t)

	a := dialMember(t, base, "r1", "a")
	other := dialMember(t, base, "r2", "b")
	waitMembers(t, m, "r1", 1)
	waitMembers(t, m, "r2", 1)
	assert.Equal(t, 2, m.RoomCount())

	payload, err := Encode(&ReactionMessage{Emoji: "👍"})
	require.NoError(t, err)
	require.NoError(t, a.Publish(context.Background(), payload, true))

	assertNoPacket(t, other)
}

func TestHubDropsUndecodableEnvelopes(t *testing.T) {
	m, base := newTestHub(t)

	a := dialMember(t, base, "r1", "a")
	b := dialMember(t, base, "r1", "b")
	waitMembers(t, m, "r1", 2)

	require.NoError(t, a.Publish(context.Background(), []byte(`{"type":"bogus"}`), true))
	require.NoError(t, a.Publish(context.Background(), []byte(`{"type":"reaction","emoji":"🔥"}`), false))

	p := receive(t, b)
	msg, ok := Decode(p.Payload)
	require.True(t, ok)
	assert.Equal(t, &ReactionMessage{Emoji: "🔥"}, msg)
}

func TestHubReplacesDuplicateIdentity(t *testing.T) {
	m, base := newTestHub(t)

	first := dialMember(t, base, "r1", "a")
	waitMembers(t, m, "r1", 1)

	second := dialMember(t, base, "r1", "a")

	select {
	case _, ok := <-first.Packets():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("old connection was not closed")
	}
	assert.True(t, IsKicked(first.Err()))

	waitMembers(t, m, "r1", 1)

	b := dialMember(t, base, "r1", "b")
	waitMembers(t, m, "r1", 2)

	payload, err := Encode(&ReactionMessage{Emoji: "👋"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), payload, true))
	assert.Equal(t, "b", receive(t, second).From)
}

func TestManagerShutdownClosesMembers(t *testing.T) {
	m, base := newTestHub(t)

	a := dialMember(t, base, "r1", "a")
	waitMembers(t, m, "r1", 1)

	m.Shutdown()

	select {
	case _, ok := <-a.Packets():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed on shutdown")
	}
	assert.Equal(t, 0, m.RoomCount())

	assert.ErrorIs(t, m.Join("r1", NewClient(nil, participant.Participant{Identity: "x"})), ErrHubClosed)
}

func TestRoomStopsWhenInactive(t *testing.T) {
	cleanup := make(chan *Room, 1)
	stop := make(chan struct{})
	defer close(stop)

	room := NewRoom("idle", cleanup, stop)
	room.inactivityTimeout = 20 * time.Millisecond
	go room.Run()

	select {
	case got := <-cleanup:
		assert.Same(t, room, got)
	case <-time.After(2 * time.Second):
		t.Fatal("room did not stop")
	}

	assert.False(t, room.RegisterClient(NewClient(nil, participant.Participant{Identity: "late"})))
}

func testClient(id string, queue int) *Client {
	return &Client{
		participant: participant.Participant{Identity: id, Name: id},
		send:        make(chan []byte, queue),
		logger:      zerolog.Nop(),
	}
}

func TestFanOutQueueOverflow(t *testing.T) {
	room := NewRoom("r", make(chan *Room, 1), make(chan struct{}))

	sender := testClient("sender", 1)
	slow := testClient("slow", 1)
	room.clients = map[string]*Client{"sender": sender, "slow": slow}

	room.fanOut(delivery{sender: sender, frame: []byte("1"), reliable: false})
	assert.Len(t, slow.send, 1)
	assert.Len(t, sender.send, 0)

	// Unreliable overflow drops the frame and keeps the member.
	room.fanOut(delivery{sender: sender, frame: []byte("2"), reliable: false})
	assert.Contains(t, room.clients, "slow")

	// Reliable overflow disconnects the member.
	room.fanOut(delivery{sender: sender, frame: []byte("3"), reliable: true})
	assert.NotContains(t, room.clients, "slow")
	assert.Equal(t, websocket.CloseTryAgainLater, slow.closeCode)

	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestRelayURL(t *testing.T) {
	u, err := RelayURL("https://call.example.com/api", "room 1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "wss://call.example.com/api/relay/room%201?access_token=tok", u)

	u, err = RelayURL("http://localhost:8080", "r1", "t")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/relay/r1?access_token=t", u)

	_, err = RelayURL("ftp://x", "r1", "t")
	assert.Error(t, err)
}
