package seed

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/session-gate/internal/storage"
	"github.com/yourusername/session-gate/internal/users"
)

func newUserService(t *testing.T) *users.Service {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", ":memory:", time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := users.NewService(users.NewSQLRepository(db))
	require.NoError(t, err)
	return svc
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRunSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	require.NoError(t, NewSeeder(svc, nil, quietLogger()).Run(ctx))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for _, name := range []string{"paul", "joy", "ray"} {
		user, err := svc.Verify(ctx, name, name)
		require.NoError(t, err, name)
		assert.Equal(t, name, user.Username)
	}
}

func TestRunIsNoOpOnNonEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	seeder := NewSeeder(svc, nil, quietLogger())

	require.NoError(t, seeder.Run(ctx))
	require.NoError(t, seeder.Run(ctx))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunSkipsWhenAnyUserExists(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "alice", "wonderland")
	require.NoError(t, err)

	require.NoError(t, NewSeeder(svc, nil, quietLogger()).Run(ctx))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.FindByUsername(ctx, "paul")
	require.ErrorIs(t, err, users.ErrNotFound)
}

type flakyRegistrar struct {
	failFor    string
	registered []string
}

func (f *flakyRegistrar) Register(_ context.Context, username, _ string) (*users.User, error) {
	if username == f.failFor {
		return nil, errors.New("disk full")
	}
	f.registered = append(f.registered, username)
	return &users.User{Username: username}, nil
}

func (f *flakyRegistrar) Count(context.Context) (int, error) {
	return len(f.registered), nil
}

func TestRunContinuesAfterFailure(t *testing.T) {
	reg := &flakyRegistrar{failFor: "joy"}

	err := NewSeeder(reg, nil, quietLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register joy")
	assert.Equal(t, []string{"paul", "ray"}, reg.registered)
}

type brokenCounter struct{ flakyRegistrar }

func (brokenCounter) Count(context.Context) (int, error) { return 0, errors.New("store down") }

func TestRunFailsWhenCountFails(t *testing.T) {
	reg := &brokenCounter{}
	err := NewSeeder(reg, nil, quietLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, reg.registered)
}
