package main

import (
	"context"
	"testing"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/asso-lecture/asso-backend/internal/bootstrap"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	log = logger.Nop()
	cfg = &config.Config{Admin: config.AdminConfig{Nom: "Admin"}}

	mem := memory.New()
	st := mem.Storage()
	app := &bootstrap.App{Store: st, Rules: consistency.New(st)}

	u, err := ensureAdmin(ctx, app, "boss@example.org")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	again, err := ensureAdmin(ctx, app, "boss@example.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	require.NoError(t, mem.CreateUser(ctx, &domain.User{ID: "s1", Email: "simple@example.org", Role: domain.RoleSimple}))
	promoted, err := ensureAdmin(ctx, app, "simple@example.org")
	require.NoError(t, err)
	assert.Equal(t, "s1", promoted.ID)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	all, err := mem.ListUsers(ctx, storage.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
