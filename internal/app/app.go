package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catering-quote/internal/domain/quote"
	"github.com/xenking/catering-quote/internal/handler"
	"github.com/xenking/catering-quote/internal/notify"
	"github.com/xenking/catering-quote/internal/square"
	"github.com/xenking/catering-quote/pkg/health"
	"github.com/xenking/catering-quote/pkg/httpmiddleware"
)

const serviceName = "catering-quote"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("square", cfg.Square.BaseURL),
		zap.String("location", cfg.Square.LocationID),
	)

	// Vendor client and repositories.
	client := square.NewClient(square.Config{
		BaseURL:     cfg.Square.BaseURL,
		AccessToken: cfg.Square.AccessToken,
		APIVersion:  cfg.Square.APIVersion,
		LocationID:  cfg.Square.LocationID,
		Timeout:     cfg.Square.Timeout,
	},
		square.WithTracerProvider(m.TracerProvider()),
		square.WithMeterProvider(m.MeterProvider()),
	)

	notifier, closeNotifier, err := buildNotifier(lg, cfg.Notify)
	if err != nil {
		return errors.Wrap(err, "build notifier")
	}
	defer closeNotifier()

	quotes, err := quote.NewService(quote.Config{
		LocationID:    cfg.Square.LocationID,
		Currency:      cfg.Square.Currency,
		InvoiceDueIn:  cfg.Quote.InvoiceDueIn,
		NotifyTimeout: cfg.Notify.Timeout,
	},
		square.NewCustomerRepository(client),
		square.NewOrderRepository(client),
		square.NewInvoiceRepository(client),
		notifier,
		quote.WithTracerProvider(m.TracerProvider()),
		quote.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create quote service")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("square", 5*time.Second, health.PingCheck("square", client))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 30*time.Second)
	healthSvc.SetReady(true)

	h := handler.NewHandler(handler.HandlerConfig{RequestTimeout: cfg.Quote.RequestTimeout}, quotes)

	routeFinder := httpmiddleware.MakeRouteFinder(handler.Routes()...)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Quote.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type"},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isHealthEndpoint,
			}),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		defer healthSvc.Stop()

		// Skip the drain delay when the server itself failed.
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// buildNotifier combines the configured owner notification channels.
func buildNotifier(lg *zap.Logger, cfg NotifyConfig) (quote.Notifier, func(), error) {
	var (
		channels notify.Multi
		closers  []func() error
	)
	if cfg.OwnerEmail != "" {
		channels = append(channels, notify.NewFormNotifier(cfg.FormURL, cfg.OwnerEmail))
		lg.Info("Form notifications enabled", zap.String("owner", cfg.OwnerEmail))
	}
	if cfg.AMQPURL != "" {
		pub, err := notify.DialAMQP(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, pub)
		closers = append(closers, pub.Close)
		lg.Info("AMQP notifications enabled", zap.String("exchange", cfg.Exchange))
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				lg.Warn("Close notifier", zap.Error(err))
			}
		}
	}
	switch len(channels) {
	case 0:
		lg.Warn("Owner notifications disabled")
		return notify.Nop, closeAll, nil
	case 1:
		return channels[0], closeAll, nil
	default:
		return channels, closeAll, nil
	}
}

func isHealthEndpoint(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
