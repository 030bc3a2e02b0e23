package di

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"

	chatRepo "tgrelay/internal/modules/chat/repository"
	feedService "tgrelay/internal/modules/feed/service"
	outcomeRepo "tgrelay/internal/modules/outcome/repository"
	pendingRepo "tgrelay/internal/modules/pending/repository"
	pendingService "tgrelay/internal/modules/pending/service"
	relayService "tgrelay/internal/modules/relay/service"
	ruleRepo "tgrelay/internal/modules/rule/repository"
	ruleService "tgrelay/internal/modules/rule/service"
	"tgrelay/internal/shared/config"
	httpServer "tgrelay/internal/transport/http"
	telegramHandler "tgrelay/internal/transport/telegram"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Rule Repository
	do.Provide(injector, func(i do.Injector) (ruleRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := ruleRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize rule repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Outcome Repository
	do.Provide(injector, func(i do.Injector) (outcomeRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := outcomeRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize outcome repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Pending Repository
	do.Provide(injector, func(i do.Injector) (pendingRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := pendingRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize pending repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Chat Repository
	do.Provide(injector, func(i do.Injector) (chatRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := chatRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize chat repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Rule Service
	do.Provide(injector, func(i do.Injector) (*ruleService.Service, error) {
		repo := do.MustInvoke[ruleRepo.Repository](i)
		svc, err := ruleService.New(repo)
		if err != nil {
			return nil, oops.With("context", "failed to load rules").Wrap(err)
		}
		return svc, nil
	})

	// Register Pending Service
	do.Provide(injector, func(i do.Injector) (*pendingService.Service, error) {
		repo := do.MustInvoke[pendingRepo.Repository](i)
		return pendingService.New(repo), nil
	})

	// Register Confirmer
	do.Provide(injector, func(i do.Injector) (relayService.Confirmer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.ConfirmMode {
		case config.ConfirmModeApprove:
			return relayService.AutoApprove, nil
		case config.ConfirmModeDecline:
			return relayService.AutoDecline, nil
		default:
			return telegramHandler.NewPromptConfirmer(cfg.AdminChatID, time.Duration(cfg.ConfirmTimeout)*time.Second), nil
		}
	})

	// Register Dispatcher
	do.Provide(injector, func(i do.Injector) (*relayService.Dispatcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rules := do.MustInvoke[*ruleService.Service](i)
		confirmer := do.MustInvoke[relayService.Confirmer](i)
		pending := do.MustInvoke[*pendingService.Service](i)
		outcomes := do.MustInvoke[outcomeRepo.Repository](i)
		transformer := relayService.NewTransformer(cfg.StripPatterns)
		return relayService.NewDispatcher(rules, transformer, confirmer, pending, outcomes), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		outcomes := do.MustInvoke[outcomeRepo.Repository](i)
		return feedService.New(outcomes), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rules := do.MustInvoke[*ruleService.Service](i)
		dispatcher := do.MustInvoke[*relayService.Dispatcher](i)
		pending := do.MustInvoke[*pendingService.Service](i)
		chats := do.MustInvoke[chatRepo.Repository](i)
		return telegramHandler.New(cfg, rules, dispatcher, pending, chats), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		feedService := do.MustInvoke[*feedService.Service](i)
		server := httpServer.New(cfg, feedService)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
		}
		if cfg.TelegramAPIURL != "" {
			opts = append(opts, bot.WithServerURL(cfg.TelegramAPIURL))
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		handler.RegisterCommands(b)

		// Wire the outbound side once the bot exists
		client := telegramHandler.NewClient(b)
		handler.SetClient(client)

		dispatcher := do.MustInvoke[*relayService.Dispatcher](i)
		dispatcher.SetSender(client)

		pending := do.MustInvoke[*pendingService.Service](i)
		pending.SetSender(client)

		if confirmer, ok := do.MustInvoke[relayService.Confirmer](i).(*telegramHandler.PromptConfirmer); ok {
			confirmer.SetBot(b)
		}

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Shutdown bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	// Stop the relay and the scheduled-send loop
	if handler, err := do.Invoke[*telegramHandler.Handler](injector); err == nil && handler != nil {
		handler.Stop()
	}
	if pending, err := do.Invoke[*pendingService.Service](injector); err == nil && pending != nil {
		pending.Stop()
	}

	return nil
}
