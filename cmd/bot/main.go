package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/dark-study-bot/internal/adapters/discord"
	"github.com/jose-valero/dark-study-bot/internal/adapters/httpstatus"
	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
	"github.com/jose-valero/dark-study-bot/internal/app/service"
	"github.com/jose-valero/dark-study-bot/internal/infra/config"
	"github.com/jose-valero/dark-study-bot/internal/infra/storage"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// DB (opcional): sin DATABASE_URL no hay historial
	var (
		recorder cycle.SessionRecorder
		history  discordrouter.HistoryReader
	)
	if cfg.DatabaseURL != "" {
		db, err := storage.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := storage.Migrate(context.Background(), db); err != nil {
			log.Fatal("migrate:", err)
		}
		logger.Info("✅ DB lista y migrada")

		sessions := storage.NewSessionRepo(db)
		rec := service.NewRecorder(sessions, logger)
		var guilds []string
		if cfg.DiscordGuild != "" {
			guilds = []string{cfg.DiscordGuild}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := rec.CloseDangling(ctx, guilds); err != nil {
			logger.Warn("close dangling sessions", "err", err)
		}
		cancel()

		recorder = rec
		history = service.NewHistoryService(sessions, nil)
	} else {
		logger.Info("DATABASE_URL vacío: historial deshabilitado")
	}

	// Discord session
	s, err := discordgo.New(cfg.DiscordToken)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	logger.Info("✅ Conectado", "user", s.State.User.Username, "id", s.State.User.ID)

	platform := discordrouter.NewPlatform(s, discordrouter.PlatformConfig{
		ChatChannelName: cfg.ChatChannelName,
		AlertAudioPath:  cfg.AlertAudioPath,
		Logger:          logger,
	})

	ccfg := cycle.DefaultConfig()
	ccfg.VoiceChannelName = cfg.VoiceChannelName
	manager := cycle.NewManager(ccfg, cycle.Options{
		Voice:      platform,
		Messenger:  platform,
		Alerter:    platform,
		Recorder:   recorder,
		Logger:     logger,
		SelfUserID: s.State.User.ID,
	})

	// Router
	r := discordrouter.NewRouter(
		s,
		cfg.DiscordGuild,
		manager,
		platform,
		history,
		cfg.VoiceChannelName,
		cfg.AdminRoleIDs,
		logger,
	)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	logger.Info("✅ comandos registrados", "guild", cfg.DiscordGuild)

	// HTTP status
	web := httpstatus.New(manager, logger)
	go func() {
		if err := web.Start(cfg.HTTPAddr); err != nil {
			logger.Error("http server", "err", err)
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
	logger.Info("apagando: deteniendo ciclos")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	manager.StopAll(ctx)
	if err := web.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
}
