package habits

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "habits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, "user-1", "meditate", "09:00"))
	require.NoError(t, store.Create(ctx, "user-1", "run", ""))
	require.NoError(t, store.Create(ctx, "user-2", "read", "21:30"))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "meditate", list[0].Name)
	assert.Equal(t, "09:00", list[0].ReminderTime)
	assert.Equal(t, 0, list[0].Streak)
	assert.Nil(t, list[0].LastCompleted)

	assert.Equal(t, "run", list[1].Name)
	assert.Equal(t, "", list[1].ReminderTime)
}

func TestMarkCompletedBumpsStreak(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, "user-1", "meditate", "09:00"))
	require.NoError(t, store.MarkCompleted(ctx, "user-1", "meditate"))
	require.NoError(t, store.MarkCompleted(ctx, "user-1", "meditate"))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Streak)
	assert.NotNil(t, list[0].LastCompleted)
}

func TestResetStreak(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, "user-1", "meditate", ""))
	require.NoError(t, store.MarkCompleted(ctx, "user-1", "meditate"))
	require.NoError(t, store.ResetStreak(ctx, "user-1", "meditate"))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Streak)
	assert.Nil(t, list[0].LastCompleted)
}

func TestUpdateReminder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, "user-1", "meditate", "09:00"))
	require.NoError(t, store.UpdateReminder(ctx, "user-1", "meditate", "07:30"))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "07:30", list[0].ReminderTime)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, "user-1", "meditate", ""))
	require.NoError(t, store.Delete(ctx, "user-1", "meditate"))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAllSpansUsers(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, "user-1", "meditate", "09:00"))
	require.NoError(t, store.Create(ctx, "user-2", "read", "21:30"))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	users := []string{all[0].UserID, all[1].UserID}
	assert.Contains(t, users, "user-1")
	assert.Contains(t, users, "user-2")
}

func TestUnknownHabitErrors(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	assert.Error(t, store.MarkCompleted(ctx, "user-1", "nope"))
	assert.Error(t, store.ResetStreak(ctx, "user-1", "nope"))
	assert.Error(t, store.UpdateReminder(ctx, "user-1", "nope", "10:00"))
	assert.Error(t, store.Delete(ctx, "user-1", "nope"))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "habits.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, "user-1", "meditate", "09:00"))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "meditate", list[0].Name)
}
