// Package notify delivers user-visible notices: the missing-coordinator
// warning and migration progress.
package notify

//go:generate mockgen -destination=mocks/mock_notify.go -package=mocks -source=notify.go

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Level is the severity of a notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelSuccess Level = "success"
)

// Messages shown to users
const (
	MessageNoCoordinator       = "Auras: no coordinator is connected, aura effects will not update until one joins."
	MessageMigrationBegin      = "Auras: migrating aura data, do not close the session."
	MessageMigrationComplete   = "Auras: all migrations completed."
	MessageLegacyMigrateBegin  = "Auras: migrating legacy aura flags on actors and items."
	MessageLegacyMigrateFinish = "Auras: legacy aura flags migrated."
)

// Notifier shows a notice to users
type Notifier interface {
	Notify(ctx context.Context, level Level, message string) error
}

// LogNotifier writes notices to the process log
type LogNotifier struct{}

// Notify implements Notifier
func (LogNotifier) Notify(_ context.Context, level Level, message string) error {
	log.Printf("Notice [%s]: %s", level, message)
	return nil
}

// MessageSender is the part of a discordgo session used to post notices
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts notices to a Discord channel
type DiscordNotifier struct {
	sender    MessageSender
	channelID string
}

// DiscordConfig configures a DiscordNotifier
type DiscordConfig struct {
	Sender    MessageSender
	ChannelID string
}

// NewDiscordNotifier creates a DiscordNotifier
func NewDiscordNotifier(cfg *DiscordConfig) *DiscordNotifier {
	if cfg.Sender == nil {
		panic("discord sender is required")
	}
	return &DiscordNotifier{sender: cfg.Sender, channelID: cfg.ChannelID}
}

// Notify implements Notifier
func (n *DiscordNotifier) Notify(ctx context.Context, level Level, message string) error {
	_, err := n.sender.ChannelMessageSend(n.channelID, prefix(level)+message, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post notice to channel %s: %w", n.channelID, err)
	}
	return nil
}

func prefix(level Level) string {
	switch level {
	case LevelWarn:
		return "⚠️ "
	case LevelSuccess:
		return "✅ "
	}
	return "ℹ️ "
}

// Multi fans a notice out to several notifiers. Every notifier is tried; the
// first error is returned.
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(ctx context.Context, level Level, message string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, level, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
