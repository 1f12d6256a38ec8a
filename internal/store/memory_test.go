package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession stores a two-item session and returns its id and item ids
func newTestSession(t *testing.T, s *MemoryStore) (uuid.UUID, string, string) {
	t.Helper()

	sessionID, err := s.CreateSession(context.Background(), &Session{
		MerchantName: "Test Diner",
		Subtotal:     30,
		Total:        36,
		Items: []LineItem{
			{Quantity: 1, Description: "Burger", Price: 12},
			{Quantity: 2, Description: "Fries", Price: 18},
		},
	})
	require.NoError(t, err)

	sess, err := s.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, sess.Items, 2)

	return sessionID, sess.Items[0].ItemID, sess.Items[1].ItemID
}

func TestMemoryStoreGetSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	t.Run("missing session", func(t *testing.T) {
		_, err := s.GetSession(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns a copy", func(t *testing.T) {
		sessionID, itemID, _ := newTestSession(t, s)

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)

		// Mutating the returned session must not leak into the store
		sess.Items[0].IsChecked = true
		sess.Items[0].Claims = append(sess.Items[0].Claims, Claim{ConnectionID: "rogue"})

		fresh, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, fresh.Item(itemID).IsChecked)
		assert.Empty(t, fresh.Item(itemID).Claims)
	})
}

func TestMemoryStoreClaims(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID, itemA, itemB := newTestSession(t, s)

	t.Run("add claim checks the item", func(t *testing.T) {
		require.NoError(t, s.AddClaim(ctx, sessionID, itemA, "conn-1"))

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, sess.Item(itemA).IsChecked)
		assert.Equal(t, []string{"conn-1"}, sess.Item(itemA).CheckedBy())
	})

	t.Run("add claim is idempotent", func(t *testing.T) {
		require.NoError(t, s.AddClaim(ctx, sessionID, itemA, "conn-1"))

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"conn-1"}, sess.Item(itemA).CheckedBy())
	})

	t.Run("claims are a set, not a single owner", func(t *testing.T) {
		require.NoError(t, s.AddClaim(ctx, sessionID, itemA, "conn-2"))

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, sess.Item(itemA).CheckedBy())
	})

	t.Run("partial unclaim keeps the item checked", func(t *testing.T) {
		require.NoError(t, s.RemoveClaim(ctx, sessionID, itemA, "conn-1"))

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, sess.Item(itemA).IsChecked)
		assert.Equal(t, []string{"conn-2"}, sess.Item(itemA).CheckedBy())
	})

	t.Run("final unclaim unchecks the item", func(t *testing.T) {
		require.NoError(t, s.RemoveClaim(ctx, sessionID, itemA, "conn-2"))

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, sess.Item(itemA).IsChecked)
		assert.Empty(t, sess.Item(itemA).CheckedBy())
	})

	t.Run("remove claims by connection spans items", func(t *testing.T) {
		require.NoError(t, s.AddClaim(ctx, sessionID, itemA, "conn-3"))
		require.NoError(t, s.AddClaim(ctx, sessionID, itemB, "conn-3"))
		require.NoError(t, s.AddClaim(ctx, sessionID, itemB, "conn-4"))

		require.NoError(t, s.RemoveClaimsBy(ctx, sessionID, "conn-3"))

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, sess.Item(itemA).IsChecked)
		assert.True(t, sess.Item(itemB).IsChecked)
		assert.Equal(t, []string{"conn-4"}, sess.Item(itemB).CheckedBy())
	})

	t.Run("unknown item", func(t *testing.T) {
		assert.ErrorIs(t, s.AddClaim(ctx, sessionID, "nope", "conn-1"), ErrNotFound)
		assert.ErrorIs(t, s.RemoveClaim(ctx, sessionID, "nope", "conn-1"), ErrNotFound)
	})
}

func TestMemoryStoreConcurrentClaims(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID, itemA, _ := newTestSession(t, s)

	// Claims from many connections racing on one item must all land
	var wg sync.WaitGroup
	connections := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, conn := range connections {
		wg.Add(1)
		go func(conn string) {
			defer wg.Done()
			assert.NoError(t, s.AddClaim(ctx, sessionID, itemA, conn))
		}(conn)
	}
	wg.Wait()

	sess, err := s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, sess.Item(itemA).IsChecked)
	assert.ElementsMatch(t, connections, sess.Item(itemA).CheckedBy())
}

func TestMemoryStoreSetPaid(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID, itemA, _ := newTestSession(t, s)

	require.NoError(t, s.SetPaid(ctx, sessionID, itemA, "conn-1", true))

	sess, err := s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, sess.Item(itemA).IsPaid)
	assert.Equal(t, "conn-1", sess.Item(itemA).PaidBy)

	// Payments have one payer, last caller wins
	require.NoError(t, s.SetPaid(ctx, sessionID, itemA, "conn-2", true))
	sess, err = s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "conn-2", sess.Item(itemA).PaidBy)

	require.NoError(t, s.SetPaid(ctx, sessionID, itemA, "conn-2", false))
	sess, err = s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, sess.Item(itemA).IsPaid)
	assert.Empty(t, sess.Item(itemA).PaidBy)
}

func TestMemoryStoreSetItemStatuses(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID, itemA, itemB := newTestSession(t, s)

	t.Run("applies partial update to all items", func(t *testing.T) {
		paid := true
		payer := "conn-9"
		err := s.SetItemStatuses(ctx, sessionID, []string{itemA, itemB}, ItemStatus{
			IsPaid: &paid,
			PaidBy: &payer,
		})
		require.NoError(t, err)

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		for _, itemID := range []string{itemA, itemB} {
			assert.True(t, sess.Item(itemID).IsPaid)
			assert.Equal(t, "conn-9", sess.Item(itemID).PaidBy)
		}
	})

	t.Run("missing item fails the whole batch", func(t *testing.T) {
		checked := true
		err := s.SetItemStatuses(ctx, sessionID, []string{itemA, "nope"}, ItemStatus{
			IsChecked: &checked,
		})
		assert.ErrorIs(t, err, ErrNotFound)

		// Nothing changed
		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, sess.Item(itemA).IsChecked)
	})

	t.Run("replaces the claim set when given", func(t *testing.T) {
		claimants := []string{"x", "y"}
		err := s.SetItemStatuses(ctx, sessionID, []string{itemA}, ItemStatus{
			CheckedBy: &claimants,
		})
		require.NoError(t, err)

		sess, err := s.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.ElementsMatch(t, claimants, sess.Item(itemA).CheckedBy())
	})
}

func TestMemoryStoreSessionFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID, _, _ := newTestSession(t, s)

	require.NoError(t, s.SetInitiator(ctx, sessionID, Initiator{
		CashTag:     "$alice",
		VenmoHandle: "@alice",
		HumanName:   "Alice",
	}))
	require.NoError(t, s.SetTip(ctx, sessionID, 9.50))

	sess, err := s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "$alice", sess.InitiatorCashTag)
	assert.Equal(t, "@alice", sess.InitiatorVenmoHandle)
	assert.Equal(t, "Alice", sess.InitiatorName)
	assert.Equal(t, 9.50, sess.Tip)
	assert.True(t, sess.IsManualTip)

	assert.ErrorIs(t, s.SetTip(ctx, uuid.New(), 1), ErrNotFound)
	assert.ErrorIs(t, s.SetInitiator(ctx, uuid.New(), Initiator{}), ErrNotFound)
}
