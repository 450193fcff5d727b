package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/auras/internal/config"
	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/election"
	"github.com/KirkDiggler/auras/internal/host/memory"
	"github.com/KirkDiggler/auras/internal/migration"
	"github.com/KirkDiggler/auras/internal/notify"
	"github.com/KirkDiggler/auras/internal/settings"
	"github.com/KirkDiggler/auras/internal/simulator"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Scenario file to play (defaults to AURAS_SCENARIO)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	path := *scenarioPath
	if path == "" {
		path = cfg.ScenarioFile
	}
	if path == "" {
		log.Fatal("No scenario given, pass -scenario or set AURAS_SCENARIO")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scenario, err := simulator.LoadScenarioFile(path)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}
	log.Printf("Playing scenario %q (%d steps)", scenario.Name, len(scenario.Steps))

	world := memory.NewWorld(nil)
	if err := world.Load(&scenario.World); err != nil {
		log.Fatalf("Failed to load world: %v", err)
	}

	notifier := buildNotifier(cfg)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = connectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			log.Println("Falling back to in-process settings and election")
		} else {
			defer redisClient.Close()
		}
	}

	var settingsStore settings.Store = settings.NewMemory(nil)
	if redisClient != nil {
		settingsStore = settings.NewRedis(&settings.RedisConfig{Client: redisClient, Hash: cfg.Redis.SettingsHash})
	}

	if !cfg.Migration.Skip {
		runner, err := migration.NewRunner(&migration.RunnerConfig{
			Settings:   settingsStore,
			Notifier:   notifier,
			Migrations: migration.Registered(world, settingsStore, notifier, cfg.GameSystem),
			Target:     cfg.Migration.Target,
		})
		if err != nil {
			log.Fatalf("Failed to create migration runner: %v", err)
		}
		applied, err := runner.Run(ctx)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Printf("Applied %d migrations", len(applied))
	}

	stackCfg := &simulator.StackConfig{
		World:         world,
		UserID:        cfg.UserID,
		Notifier:      notifier,
		SettleTimeout: cfg.SettleTimeout,
	}
	if redisClient != nil {
		stackCfg.Elector = leaseElector(ctx, cfg, redisClient)
	}
	stack := simulator.NewStack(stackCfg)
	defer stack.Close()

	sim := simulator.New(&simulator.Config{
		World:  world,
		Engine: stack.Engine,
		UserID: cfg.UserID,
		Out:    os.Stdout,
	})
	if err := sim.Run(ctx, scenario.Steps); err != nil {
		log.Fatalf("Scenario failed: %v", err)
	}
	log.Println("Scenario passed")
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	notifiers := notify.Multi{notify.LogNotifier{}}
	if !cfg.Discord.Enabled() {
		return notifiers
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Printf("Failed to create Discord session, notices stay in the log: %v", err)
		return notifiers
	}
	return append(notifiers, notify.NewDiscordNotifier(&notify.DiscordConfig{
		Sender:    dg,
		ChannelID: cfg.Discord.ChannelID,
	}))
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	log.Printf("Connected to Redis at %s", opts.Addr)
	return client, nil
}

// leaseElector campaigns for the coordinator lease in the background. Only
// this process's handle is reachable, so another holder leaves no coordinator.
func leaseElector(ctx context.Context, cfg *config.Config, client *redis.Client) func(coordinator.Handle) coordinator.Elector {
	id := cfg.Coordinator.ID
	if id == "" {
		id = uuid.NewString()
	}
	return func(local coordinator.Handle) coordinator.Elector {
		lease := election.NewLease(&election.Config{
			Client:    client,
			ID:        id,
			Directory: coordinator.StaticDirectory{id: local},
			Key:       cfg.Coordinator.LeaseKey,
			TTL:       cfg.Coordinator.LeaseTTL,
		})
		if _, err := lease.Campaign(ctx); err != nil {
			log.Printf("Failed to campaign for coordinator lease: %v", err)
		}
		go func() {
			if err := lease.Run(ctx); err != nil {
				log.Printf("Failed to resign coordinator lease: %v", err)
			}
		}()
		return lease
	}
}
