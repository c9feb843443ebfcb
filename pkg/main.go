package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	pkg "github.com/seralia/feedsync/pkg/internal"
	"github.com/seralia/feedsync/pkg/internal/cache"
	"github.com/seralia/feedsync/pkg/internal/models"
	"github.com/seralia/feedsync/pkg/internal/queue"
	"github.com/seralia/feedsync/pkg/internal/realtime"
	"github.com/seralia/feedsync/pkg/internal/remote"
	"github.com/seralia/feedsync/pkg/internal/services"
	"github.com/seralia/feedsync/pkg/internal/storage"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" _____             _ ____\n|  ___|__  ___  __| / ___| _   _ _ __   ___\n| |_ / _ \\/ _ \\/ _` \\___ \\| | | | '_ \\ / __|\n|  _|  __/  __/ (_| |___) | |_| | | | | (__\n|_|  \\___|\\___|\\__,_|____/ \\__, |_| |_|\\___|\n                           |___/"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("FeedSync"), pkg.AppVersion)
	fmt.Printf("The offline-first feed synchronization core\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	viper.SetDefault("storage.path", "data")
	viper.SetDefault("feed.page_size", 10)
	viper.SetDefault("remote.total_posts", 64)
	viper.SetDefault("remote.latency", "400ms")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("No settings file found, continuing with defaults...")
	}

	// Local cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing the local cache.")
	}

	// Durable storage
	store, err := storage.NewFileStore(afero.NewOsFs(), viper.GetString("storage.path"))
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when opening durable storage.")
	}

	clk := clock.New()

	// Core components
	pending := queue.New(store)
	outbox := realtime.NewOutbox(store)
	channel := realtime.NewChannel(clk, outbox, realtime.Options{
		ConnectDelay:      viper.GetDuration("realtime.connect_delay"),
		SendDelay:         viper.GetDuration("realtime.send_delay"),
		HeartbeatInterval: viper.GetDuration("realtime.heartbeat_interval"),
		MessageInterval:   viper.GetDuration("realtime.message_interval"),
	})
	state := services.NewAppState()
	snapshots := services.NewSnapshots(store, clk, viper.GetDuration("snapshot.ttl"))
	svc := remote.NewSimulated(clk, viper.GetInt("remote.total_posts"), viper.GetDuration("remote.latency"))
	coordinator := services.NewCoordinator(svc, pending, channel, state, snapshots, services.CoordinatorOptions{
		PageSize: viper.GetInt("feed.page_size"),
	})

	state.Updates.Subscribe(func(snap services.StateSnapshot) {
		log.Info().
			Str("feed", snap.Feed.Code).
			Str("network", snap.Network).
			Str("sync", snap.Sync).
			Int("pending", snap.PendingCount).
			Msg("Application state changed.")
	})
	coordinator.InboundEvents.Subscribe(func(msg models.RealTimeMessage) {
		log.Info().Str("kind", msg.Kind).Str("id", msg.ID).Msg("Inbound real-time event.")
	})

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", snapshots.CleanupExpired)
	quartz.Start()

	// Bring the channel up unless the user left the client in offline mode
	if offline, err := services.GetOfflineFlag(store); err != nil {
		log.Warn().Err(err).Msg("Unable to read the offline flag, connecting anyway...")
		channel.Connect()
	} else if !offline {
		channel.Connect()
	} else {
		log.Info().Msg("Offline mode is on, staying disconnected.")
	}

	// First page; start from the cached snapshot when one survives restart
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if coordinator.RestoreSnapshot() {
		if err := coordinator.RefreshPosts(ctx); err != nil {
			log.Error().Err(err).Msg("An error occurred when refreshing the restored feed.")
		}
	} else if err := coordinator.LoadPosts(ctx); err != nil {
		log.Error().Err(err).Msg("An error occurred when loading the first feed page.")
	}
	cancel()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
	channel.Disconnect()
}
