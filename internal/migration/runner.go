package migration

import (
	"context"
	"log"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/host"
	"github.com/KirkDiggler/auras/internal/notify"
	"github.com/KirkDiggler/auras/internal/settings"
)

// Migration is one versioned step
type Migration struct {
	Version string
	Name    string
	Run     func(ctx context.Context) error
}

// RunnerConfig holds the runner's dependencies
type RunnerConfig struct {
	Settings   settings.Store
	Notifier   notify.Notifier
	Migrations []Migration
	// Target caps the versions applied; empty applies every migration
	Target string
}

// Runner applies migrations newer than the persisted marker, oldest first,
// advancing the marker after each one
type Runner struct {
	settings   settings.Store
	notifier   notify.Notifier
	migrations []Migration
	target     string
}

// NewRunner validates the migration versions and creates a Runner
func NewRunner(cfg *RunnerConfig) (*Runner, error) {
	if cfg.Settings == nil {
		return nil, errors.InvalidArgumentf("settings store is required")
	}
	migrations := append([]Migration(nil), cfg.Migrations...)
	for _, m := range migrations {
		if !semver.IsValid(canonical(m.Version)) {
			return nil, errors.InvalidArgumentf("migration %q has invalid version %q", m.Name, m.Version)
		}
	}
	if cfg.Target != "" && !semver.IsValid(canonical(cfg.Target)) {
		return nil, errors.InvalidArgumentf("invalid migration target %q", cfg.Target)
	}
	sort.SliceStable(migrations, func(i, j int) bool {
		return semver.Compare(canonical(migrations[i].Version), canonical(migrations[j].Version)) < 0
	})
	return &Runner{
		settings:   cfg.Settings,
		notifier:   cfg.Notifier,
		migrations: migrations,
		target:     cfg.Target,
	}, nil
}

// Run applies pending migrations and returns the versions it applied. A
// failed migration stops the run with the marker at the last success.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	current, err := settings.MigrationVersion(ctx, r.settings)
	if err != nil {
		return nil, err
	}
	if !semver.IsValid(canonical(current)) {
		log.Printf("Migration: stored version %q is invalid, treating as %s", current, settings.InitialMigrationVersion)
		current = settings.InitialMigrationVersion
	}

	var applied []string
	for _, m := range r.migrations {
		if semver.Compare(canonical(m.Version), canonical(current)) <= 0 {
			continue
		}
		if r.target != "" && semver.Compare(canonical(m.Version), canonical(r.target)) > 0 {
			break
		}
		if len(applied) == 0 {
			announce(ctx, r.notifier, notify.LevelInfo, notify.MessageMigrationBegin)
		}

		log.Printf("Migration: applying %s (%s)", m.Version, m.Name)
		if err := m.Run(ctx); err != nil {
			return applied, errors.Wrapf(err, "migration %s failed", m.Version)
		}
		if err := settings.SetMigrationVersion(ctx, r.settings, m.Version); err != nil {
			return applied, err
		}
		current = m.Version
		applied = append(applied, m.Version)
	}

	if len(applied) > 0 {
		announce(ctx, r.notifier, notify.LevelSuccess, notify.MessageMigrationComplete)
	}
	return applied, nil
}

// Registered returns the installation's migrations. The legacy flag rewrite
// reads the predecessor's wall setting when it runs.
func Registered(store host.MigrationStore, settingsStore settings.Store, notifier notify.Notifier, system string) []Migration {
	return []Migration{{
		Version: "1.0.0",
		Name:    "legacy aura flags",
		Run: func(ctx context.Context) error {
			wallsBlock, err := settings.Bool(ctx, settingsStore, settings.KeyLegacyWallBlock, false)
			if err != nil {
				log.Printf("Migration: %v, walls will not block migrated auras", err)
			}
			_, err = MigrateLegacy(ctx, store, notifier, LegacyOptions{System: system, WallsBlock: wallsBlock})
			return err
		},
	}}
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
