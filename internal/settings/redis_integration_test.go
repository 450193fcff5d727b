//go:build integration

package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/auras/internal/settings"
	"github.com/KirkDiggler/auras/internal/testutils"
)

func TestRedisStore_Integration(t *testing.T) {
	client := testutils.StartRedisContainer(t)
	store := settings.NewRedis(&settings.RedisConfig{Client: client})
	ctx := context.Background()

	v, err := settings.MigrationVersion(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, settings.InitialMigrationVersion, v)

	require.NoError(t, settings.SetMigrationVersion(ctx, store, "1.0.0"))
	require.NoError(t, settings.SetBool(ctx, store, settings.KeyExactCircles, true))

	v, err = settings.MigrationVersion(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)

	circles, err := settings.Bool(ctx, store, settings.KeyExactCircles, false)
	require.NoError(t, err)
	assert.True(t, circles)

	fields, err := client.HGetAll(ctx, settings.DefaultHash).Result()
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}
