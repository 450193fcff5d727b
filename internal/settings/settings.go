// Package settings persists installation-wide settings: the migration marker,
// visual preferences and the predecessor module's settings read during
// migration.
package settings

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=settings.go

import (
	"context"
	"strconv"

	"github.com/KirkDiggler/auras/internal/errors"
)

const (
	// KeyMigrationVersion records the last applied migration
	KeyMigrationVersion = "auras.migrationVersion"
	// KeyDisableVisuals turns off radius rendering for a client
	KeyDisableVisuals = "auras.disableVisuals"
	// KeyExactCircles renders radii as true circles instead of grid shapes
	KeyExactCircles = "auras.exactCircles"
	// KeyLegacyWallBlock is the predecessor module's wall-blocking toggle
	KeyLegacyWallBlock = "ActiveAuras.wall-block"

	// InitialMigrationVersion is reported before any migration has run
	InitialMigrationVersion = "0.0.0"
)

// Store reads and writes string settings
type Store interface {
	// Get returns the value and whether the key was set
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MigrationVersion returns the last applied migration version
func MigrationVersion(ctx context.Context, s Store) (string, error) {
	v, ok, err := s.Get(ctx, KeyMigrationVersion)
	if err != nil {
		return "", errors.Wrap(err, "failed to read migration version")
	}
	if !ok || v == "" {
		return InitialMigrationVersion, nil
	}
	return v, nil
}

// SetMigrationVersion records the last applied migration version
func SetMigrationVersion(ctx context.Context, s Store, version string) error {
	if err := s.Set(ctx, KeyMigrationVersion, version); err != nil {
		return errors.Wrap(err, "failed to write migration version")
	}
	return nil
}

// Bool reads a boolean setting, returning def when unset
func Bool(ctx context.Context, s Store, key string, def bool) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return def, errors.Wrapf(err, "failed to read setting %s", key)
	}
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, errors.WrapWithCode(err, errors.CodeInvalidArgument, "setting "+key+" is not a boolean")
	}
	return b, nil
}

// SetBool writes a boolean setting
func SetBool(ctx context.Context, s Store, key string, v bool) error {
	return s.Set(ctx, key, strconv.FormatBool(v))
}
