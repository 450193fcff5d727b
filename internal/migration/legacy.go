package migration

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/host"
	"github.com/KirkDiggler/auras/internal/notify"
)

// parentConcurrency bounds parallel parent updates
const parentConcurrency = 8

// MigrateLegacy rewrites predecessor flags on every effect of every unlocked
// parent: world actors, their items, world items and unlocked compendiums.
// Returns the number of effects updated.
func MigrateLegacy(ctx context.Context, store host.MigrationStore, notifier notify.Notifier, opts LegacyOptions) (int, error) {
	announce(ctx, notifier, notify.LevelInfo, notify.MessageLegacyMigrateBegin)

	parents, err := store.EffectParents(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list effect parents")
	}

	counts := make([]int, len(parents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parentConcurrency)
	for i, parent := range parents {
		i, parent := i, parent
		if parent.Locked {
			continue
		}
		updates := effects.List{}
		for _, e := range parent.Effects {
			if migrated, ok := TransformLegacy(e, opts); ok {
				updates = append(updates, migrated)
			}
		}
		if len(updates) == 0 {
			continue
		}
		g.Go(func() error {
			if err := store.UpdateEffects(gctx, parent.UUID, updates); err != nil {
				return errors.Wrapf(err, "failed to migrate effects on %s", parent.UUID)
			}
			counts[i] = len(updates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	log.Printf("Migration: rewrote legacy flags on %d effects across %d parents", total, len(parents))
	announce(ctx, notifier, notify.LevelSuccess, notify.MessageLegacyMigrateFinish)
	return total, nil
}

func announce(ctx context.Context, notifier notify.Notifier, level notify.Level, message string) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, level, message); err != nil {
		log.Printf("Migration: failed to deliver notice: %v", err)
	}
}
