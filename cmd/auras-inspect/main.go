package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/auras/internal/config"
	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/election"
	"github.com/KirkDiggler/auras/internal/settings"
)

func main() {
	setVersion := flag.String("set-migration-version", "", "Overwrite the stored migration version, e.g. 0.0.0 to rerun every migration")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Redis.Enabled() {
		log.Fatal("Set REDIS_URL or REDIS_ADDR to inspect shared state")
	}
	opts, err := cfg.Redis.Options()
	if err != nil {
		log.Fatalf("Failed to build Redis options: %v", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	lease := election.NewLease(&election.Config{
		Client:    client,
		ID:        "inspect",
		Directory: coordinator.StaticDirectory{},
		Key:       cfg.Coordinator.LeaseKey,
		TTL:       cfg.Coordinator.LeaseTTL,
	})
	leader, ok, err := lease.Leader(ctx)
	switch {
	case err != nil:
		fmt.Printf("Coordinator: ERROR - %v\n", err)
	case !ok:
		fmt.Println("Coordinator: none elected")
	default:
		ttl, _ := client.PTTL(ctx, cfg.Coordinator.LeaseKey).Result()
		fmt.Printf("Coordinator: %s (lease expires in %s)\n", leader, ttl)
	}

	store := settings.NewRedis(&settings.RedisConfig{Client: client, Hash: cfg.Redis.SettingsHash})
	if *setVersion != "" {
		if err := settings.SetMigrationVersion(ctx, store, *setVersion); err != nil {
			log.Fatalf("Failed to set migration version: %v", err)
		}
		fmt.Printf("Migration version set to %s\n", *setVersion)
	}

	fmt.Printf("\nSettings in %s:\n", cfg.Redis.SettingsHash)
	for _, key := range []string{
		settings.KeyMigrationVersion,
		settings.KeyDisableVisuals,
		settings.KeyExactCircles,
		settings.KeyLegacyWallBlock,
	} {
		v, set, err := store.Get(ctx, key)
		switch {
		case err != nil:
			fmt.Printf("  %s: ERROR - %v\n", key, err)
		case !set:
			fmt.Printf("  %s: (unset)\n", key)
		default:
			fmt.Printf("  %s: %s\n", key, v)
		}
	}
}
