package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartSession(t *testing.T) {
	t.Run("owner is fixed at first call", func(t *testing.T) {
		tracker := NewTracker()

		require.NoError(t, tracker.StartSession("s1", "owner"))

		// A second start for the same session joins but keeps the
		// original owner
		require.NoError(t, tracker.StartSession("s1", "latecomer"))

		members := tracker.Members("s1")
		require.Len(t, members, 2)
		assert.Equal(t, Member{ID: "owner", IsOwner: true}, members[0])
		assert.Equal(t, Member{ID: "latecomer", IsOwner: false}, members[1])
	})

	t.Run("repeat start by the owner is a no-op", func(t *testing.T) {
		tracker := NewTracker()

		require.NoError(t, tracker.StartSession("s1", "owner"))
		require.NoError(t, tracker.StartSession("s1", "owner"))

		members := tracker.Members("s1")
		require.Len(t, members, 1)
		assert.Equal(t, Member{ID: "owner", IsOwner: true}, members[0])
	})

	t.Run("start from a connection in another session is rejected without mutation", func(t *testing.T) {
		tracker := NewTracker()

		require.NoError(t, tracker.StartSession("s1", "drifter"))

		err := tracker.StartSession("s2", "drifter")
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, tracker.Members("s2"))
		assert.True(t, tracker.IsMember("s1", "drifter"))

		// The rejected start must not have grabbed ownership of s2
		require.NoError(t, tracker.StartSession("s2", "creator"))
		members := tracker.Members("s2")
		require.Len(t, members, 1)
		assert.Equal(t, Member{ID: "creator", IsOwner: true}, members[0])
	})
}

func TestTrackerJoin(t *testing.T) {
	tracker := NewTracker()

	t.Run("joins a session", func(t *testing.T) {
		require.NoError(t, tracker.Join("s1", "c1"))
		assert.True(t, tracker.IsMember("s1", "c1"))
	})

	t.Run("re-joining the same session is a no-op", func(t *testing.T) {
		require.NoError(t, tracker.Join("s1", "c1"))
		assert.Len(t, tracker.Members("s1"), 1)
	})

	t.Run("joining a second session is rejected", func(t *testing.T) {
		err := tracker.Join("s2", "c1")
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.False(t, tracker.IsMember("s2", "c1"))
	})
}

func TestTrackerLeave(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.StartSession("s1", "owner"))
	require.NoError(t, tracker.Join("s1", "c1"))
	require.NoError(t, tracker.Join("s1", "c2"))

	t.Run("removes the member", func(t *testing.T) {
		tracker.Leave("s1", "c1")
		assert.False(t, tracker.IsMember("s1", "c1"))
		assert.Len(t, tracker.Members("s1"), 2)
	})

	t.Run("owner leaving unassigns ownership without promotion", func(t *testing.T) {
		tracker.Leave("s1", "owner")

		members := tracker.Members("s1")
		require.Len(t, members, 1)
		assert.Equal(t, Member{ID: "c2", IsOwner: false}, members[0])
	})

	t.Run("last member leaving clears the registry entry", func(t *testing.T) {
		tracker.Leave("s1", "c2")
		assert.Empty(t, tracker.Members("s1"))
		assert.Empty(t, tracker.ActiveSessions())
	})

	t.Run("member can join a new session after leaving", func(t *testing.T) {
		require.NoError(t, tracker.Join("s2", "c1"))
		assert.True(t, tracker.IsMember("s2", "c1"))
	})
}

func TestTrackerMembersOrder(t *testing.T) {
	tracker := NewTracker()

	// Two members join before the session is started; the owner is still
	// reported first
	require.NoError(t, tracker.Join("s1", "c1"))
	require.NoError(t, tracker.Join("s1", "c2"))
	require.NoError(t, tracker.StartSession("s1", "owner"))
	require.NoError(t, tracker.Join("s1", "c3"))

	members := tracker.Members("s1")
	require.Len(t, members, 4)
	assert.Equal(t, "owner", members[0].ID)
	assert.True(t, members[0].IsOwner)
	assert.Equal(t, []string{members[1].ID, members[2].ID, members[3].ID}, []string{"c1", "c2", "c3"})
}

func TestTrackerSessionOf(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.Join("s1", "c1"))

	sessionID, ok := tracker.SessionOf("c1")
	assert.True(t, ok)
	assert.Equal(t, "s1", sessionID)

	_, ok = tracker.SessionOf("ghost")
	assert.False(t, ok)
}
