package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/config"
	"motion-typo-studio/internal/flow"
	"motion-typo-studio/internal/gemini"
	"motion-typo-studio/internal/httpclient"
	"motion-typo-studio/internal/session"
	"motion-typo-studio/internal/store"
	"motion-typo-studio/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadWeb()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	st, err := store.Open(store.Options{
		DBPath:   cfg.DBPath,
		MediaDir: cfg.MediaDir,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One limiter for all sessions; the provider quota is shared either way.
	var limiter *rate.Limiter
	if cfg.ProviderRateEvery > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.ProviderRateEvery), 2)
	}

	sessions := session.NewStore(session.Options{
		TTL:    cfg.SessionTTL,
		EnvKey: cfg.Gemini.APIKey,
		NewPipeline: func(sess *session.Session) (*ad.Creator, *flow.Controller) {
			gem := gemini.New(gemini.Options{
				Credentials: sess,
				BaseURL:     cfg.Gemini.BaseURL,
				APIVersion:  cfg.Gemini.APIVersion,
				TextModel:   cfg.Gemini.TextModel,
				ImageModel:  cfg.Gemini.ImageModel,
				VideoModel:  cfg.Gemini.VideoModel,
				HTTPClient:  httpClient,
				Logger:      logger,
			})
			creator := ad.NewCreator(ad.Options{
				Provider:  gem,
				Limiter:   limiter,
				PollEvery: cfg.VideoPollInterval,
				Logger:    logger,
			})
			ctrl := flow.NewController(flow.Options{
				Generator: creator,
				Keys:      sess,
				Sink:      st,
				Logger:    logger,
			})
			return creator, ctrl
		},
	})

	server := web.New(web.Options{
		Store:    st,
		Sessions: sessions,
		RunCtx:   ctx,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web started", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}
