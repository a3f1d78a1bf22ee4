package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(h *Hub, userID string) *Client {
	return &Client{hub: h, userID: userID, send: make(chan Event, sendBufferSize)}
}

func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case e := <-c.send:
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestHubUserRoomOnRegister(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.register(c)

	assert.Equal(t, 1, h.RoomSize(UserRoom("u1")))

	h.EmitToUser("u1", "team-updated", map[string]string{"userId": "u1"})
	events := drain(c)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "team-updated", events[0].Event)
	}
}

func TestHubEmitToUserOnlyReachesThatUser(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h, "u1")
	c2 := newTestClient(h, "u2")
	h.register(c1)
	h.register(c2)

	h.EmitToUser("u1", "notification-new", nil)

	assert.Len(t, drain(c1), 1)
	assert.Empty(t, drain(c2))
}

func TestHubTaskRoomJoinLeave(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.register(c)

	room := TaskRoom("t1")
	h.Join(c, room)
	assert.Equal(t, 1, h.RoomSize(room))

	h.EmitToTask("t1", "task-updated", nil)
	assert.Len(t, drain(c), 1)

	h.Leave(c, room)
	assert.Equal(t, 0, h.RoomSize(room))

	h.EmitToTask("t1", "task-updated", nil)
	assert.Empty(t, drain(c))
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h, "u1")
	c2 := newTestClient(h, "u2")
	h.register(c1)
	h.register(c2)

	h.Broadcast("task-updated-global", map[string]string{"taskId": "t1"})

	assert.Len(t, drain(c1), 1)
	assert.Len(t, drain(c2), 1)
}

func TestHubUnregisterRemovesFromAllRooms(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.register(c)
	h.Join(c, TaskRoom("t1"))

	h.unregister(c)

	assert.Equal(t, 0, h.RoomSize(UserRoom("u1")))
	assert.Equal(t, 0, h.RoomSize(TaskRoom("t1")))

	// Emitting after unregister must not panic on the closed channel.
	h.EmitToUser("u1", "notification-new", nil)
	h.EmitToTask("t1", "task-updated", nil)
}

func TestHubSlowClientDoesNotBlock(t *testing.T) {
	h := NewHub()
	slow := &Client{hub: h, userID: "u1", send: make(chan Event)} // unbuffered, never read
	h.register(slow)

	done := make(chan struct{})
	go func() {
		h.EmitToUser("u1", "notification-new", nil)
		close(done)
	}()

	select {
	case <-done:
	default:
		// Give the goroutine a moment; EmitToRoom must not block on the full
		// send channel.
		<-done
	}
}

func TestHubJoinDeniedForOtherUsersRoom(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "alice")
	eve := newTestClient(h, "eve")
	h.register(alice)
	h.register(eve)

	h.Join(eve, UserRoom("alice"))
	assert.Equal(t, 1, h.RoomSize(UserRoom("alice")))

	h.EmitToUser("alice", "notification-new", map[string]interface{}{"userId": "alice", "unreadCount": int64(3)})

	assert.Len(t, drain(alice), 1)
	assert.Empty(t, drain(eve), "a user room is private to its owner")

	// Re-joining your own room stays allowed.
	h.Join(eve, UserRoom("eve"))
	assert.Equal(t, 1, h.RoomSize(UserRoom("eve")))
}

func TestHubJoinAllowsTaskAndTeamRooms(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.register(c)

	h.Join(c, TaskRoom("t1"))
	h.Join(c, TeamRoom("pm1"))

	assert.Equal(t, 1, h.RoomSize(TaskRoom("t1")))
	assert.Equal(t, 1, h.RoomSize(TeamRoom("pm1")))
}

func TestHubJoinIgnoredForUnknownClient(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")

	h.Join(c, TaskRoom("t1"))
	assert.Equal(t, 0, h.RoomSize(TaskRoom("t1")))
}
