package presence

import (
	"chatrooms/domain"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(window time.Duration) (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	return NewTracker(slog.Default(), window, nil).WithClock(clock.Now), clock
}

func TestTracker_Join_Leave_Recomputes_Online(t *testing.T) {
	req := require.New(t)
	tracker, clock := newTestTracker(time.Minute)

	// Given an identity joined in two rooms
	tracker.Join("u1", "r1")
	tracker.Join("u1", "r2")
	req.True(tracker.IsOnline("u1"))
	req.Equal(Joined, tracker.State("u1", "r1"))

	// When it leaves one room it stays online
	tracker.Leave("u1", "r1")
	req.True(tracker.IsOnline("u1"))
	req.Equal(Absent, tracker.State("u1", "r1"))

	// When it leaves the last room it goes offline, LastSeen is the leave time
	clock.Advance(10 * time.Second)
	tracker.Leave("u1", "r2")
	req.False(tracker.IsOnline("u1"))
	req.Equal(clock.now, tracker.Presence("u1").LastSeen)

	// Leaving twice changes nothing
	tracker.Leave("u1", "r2")
	req.False(tracker.IsOnline("u1"))
}

func TestTracker_Heartbeat_Keeps_Membership_Alive(t *testing.T) {
	req := require.New(t)
	tracker, clock := newTestTracker(time.Minute)

	tracker.Join("u1", "r1")
	for i := 0; i < 5; i++ {
		clock.Advance(50 * time.Second)
		req.True(tracker.Heartbeat("u1"))
		req.Zero(tracker.Sweep())
	}
	req.True(tracker.IsOnline("u1"))
	req.False(tracker.Heartbeat("nobody"))
}

func TestTracker_Missed_Heartbeats_Expire_Within_Two_Windows(t *testing.T) {
	req := require.New(t)
	window := time.Minute
	tracker, clock := newTestTracker(window)

	var absent []string
	tracker.OnAbsent(func(identity string, room domain.RoomID) {
		absent = append(absent, identity+"@"+string(room))
	})

	tracker.Join("u1", "r1")
	lastBeat := clock.now

	// A sweep running every window, the first one still inside the window
	clock.Advance(window)
	req.Zero(tracker.Sweep())
	req.True(tracker.IsOnline("u1"))

	clock.Advance(window)
	req.Equal(1, tracker.Sweep())

	// Then the membership is Absent, online recomputed, LastSeen is the last heartbeat
	req.Equal(Absent, tracker.State("u1", "r1"))
	req.False(tracker.IsOnline("u1"))
	req.Equal(lastBeat, tracker.Presence("u1").LastSeen)
	req.Equal([]string{"u1@r1"}, absent)
}

func TestTracker_Evict_Notifies_Listener(t *testing.T) {
	req := require.New(t)
	tracker, _ := newTestTracker(time.Minute)

	var absent []string
	tracker.OnAbsent(func(identity string, room domain.RoomID) {
		absent = append(absent, identity+"@"+string(room))
	})

	tracker.Join("u1", "r1")
	tracker.Evict("u1", "r1")
	tracker.Evict("u1", "r1")

	req.False(tracker.IsOnline("u1"))
	req.Equal([]string{"u1@r1"}, absent)
}

func TestTracker_Members(t *testing.T) {
	req := require.New(t)
	tracker, _ := newTestTracker(time.Minute)

	tracker.Join("u2", "r1")
	tracker.Join("u1", "r1")
	tracker.Join("u3", "r2")

	req.Equal([]string{"u1", "u2"}, tracker.Members("r1"))
	req.Empty(tracker.Members("r3"))
}

func TestTracker_Pending_Coalesces_Per_Identity(t *testing.T) {
	req := require.New(t)
	tracker, clock := newTestTracker(time.Minute)

	tracker.Join("u1", "r1")
	tracker.Join("u1", "r2") // no flip, nothing queued
	tracker.Join("u2", "r1")
	clock.Advance(time.Second)
	tracker.Leave("u2", "r1")

	select {
	case <-tracker.Changed():
	default:
		req.Fail("tracker should signal pending transitions")
	}

	pending := tracker.Pending()
	req.Len(pending, 2)
	req.Equal(domain.Presence{Identity: "u1", Online: true}, pending[0])
	req.Equal(domain.Presence{Identity: "u2", Online: false, LastSeen: clock.now}, pending[1])
	req.Nil(tracker.Pending())
}
