package session

import (
	"context"
	"errors"
	"testing"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/application/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup() (*Manager, *remotetest.Gateway) {
	m := NewManager(zap.NewNop())
	gw := remotetest.New(10)
	gw.Tokens = m
	return m, gw
}

func TestManager_LoginLogout(t *testing.T) {
	m, gw := setup()
	ctx := context.Background()

	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })

	_, ok := m.Token()
	assert.False(t, ok)

	s, err := m.Login(ctx, gw, remote.Credentials{Email: "admin@venue.test", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "u-admin", s.User.ID)
	assert.Equal(t, "u-admin", m.UserID())

	token, ok := m.Token()
	assert.True(t, ok)
	assert.Equal(t, s.Token, token)

	require.NoError(t, m.Logout(ctx, gw))
	_, ok = m.Token()
	assert.False(t, ok)

	require.Len(t, events, 2)
	assert.True(t, events[0].Active)
	assert.False(t, events[1].Active)
	assert.False(t, events[1].Forced)
	assert.Equal(t, "u-admin", events[1].User.ID)
}

func TestManager_LoginRejected(t *testing.T) {
	m, gw := setup()

	_, err := m.Login(context.Background(), gw, remote.Credentials{Email: "admin@venue.test", Password: "nope"})
	assert.True(t, errors.Is(err, remote.ErrUnauthorized))
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestManager_LogoutWhenServerUnreachable(t *testing.T) {
	m, gw := setup()
	ctx := context.Background()
	_, err := m.Login(ctx, gw, remote.Credentials{Email: "admin@venue.test", Password: "secret"})
	require.NoError(t, err)

	gw.FailNext("Logout", remote.ErrTransport)
	err = m.Logout(ctx, gw)
	assert.True(t, errors.Is(err, remote.ErrTransport))
	_, ok := m.Token()
	assert.False(t, ok, "local session ends regardless")
}

func TestManager_ForceLogoutIsIdempotent(t *testing.T) {
	m, _ := setup()
	m.Begin(remote.Session{Token: "t1"})

	var forced int
	m.Subscribe(func(e Event) {
		if e.Forced {
			forced++
		}
	})

	m.ForceLogout(remote.ErrUnauthorized)
	m.ForceLogout(remote.ErrUnauthorized)
	assert.Equal(t, 1, forced)
	_, ok := m.Token()
	assert.False(t, ok)
}
