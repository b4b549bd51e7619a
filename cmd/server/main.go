// Command server runs the tipster platform API: offer catalog, checkout
// and subscription management, the processor webhook endpoint, and
// viewer-filtered tip feeds.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	modbilling "github.com/tipvault/tipvault/modules/billing"
	"github.com/tipvault/tipvault/modules/catalog"
	"github.com/tipvault/tipvault/modules/tips"
	"github.com/tipvault/tipvault/pkg/access"
	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/config"
	"github.com/tipvault/tipvault/pkg/fees"
	"github.com/tipvault/tipvault/pkg/follow"
	"github.com/tipvault/tipvault/pkg/httpserver"
	"github.com/tipvault/tipvault/pkg/logger"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/pg"
	"github.com/tipvault/tipvault/pkg/redis"
	"github.com/tipvault/tipvault/pkg/stats"
	"github.com/tipvault/tipvault/pkg/subscription"
	"github.com/tipvault/tipvault/pkg/tipster"
)

type appConfig struct {
	ServiceName   string        `env:"SERVICE_NAME" envDefault:"tipvault"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	SweepSchedule string        `env:"SUBSCRIPTION_SWEEP_SCHEDULE" envDefault:"*/10 * * * *"`
	GrantCacheTTL time.Duration `env:"ACCESS_GRANT_CACHE_TTL" envDefault:"1m"`
}

func main() {
	ctx := context.Background()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithService(appCfg.ServiceName),
		logger.WithFormat(logger.Format(appCfg.LogFormat)),
		logger.WithLevel(parseLevel(appCfg.LogLevel)),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, appCfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var paddleCfg billing.PaddleConfig
	config.MustLoad(&paddleCfg)
	gateway, err := billing.NewPaddleGateway(paddleCfg)
	if err != nil {
		return err
	}

	var payeeCfg billing.PayeeClientConfig
	config.MustLoad(&payeeCfg)
	payeeClient, err := billing.NewPayeeClient(payeeCfg)
	if err != nil {
		return err
	}
	payeeSvc := billing.NewPayeeService(billing.NewPgPayeeStore(pool), payeeClient)

	tipsterStore := tipster.NewPgStore(pool)
	tipsters := tipster.NewDirectory(tipsterStore)

	offerSvc := offer.NewService(offer.NewPgStore(pool), tipsters, gateway, payeeSvc, log)

	ledger := subscription.NewPgLedger(pool)
	// One lock set serializes cancellations and webhook snapshots per
	// provider subscription.
	subLocks := subscription.NewLockSet()
	subSvc := subscription.NewService(ledger, offerSvc, tipsters, gateway, payeeSvc, fees.DefaultSchedule(), subLocks, log)
	reconciler := subscription.NewReconciler(ledger, subLocks, log)

	sweeper := subscription.NewSweeper(subSvc, appCfg.SweepSchedule, log)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	tipStore := access.NewPgTipStore(pool)
	engine := access.NewEngine(tipStore, ledger, offerSvc, tipsters, log,
		access.WithGrantCache(redisClient, appCfg.GrantCacheTTL))

	followSvc := follow.NewService(follow.NewPgStore(pool), tipsters, log)
	statsSvc := stats.NewService(tipStore, tipsterStore, log)

	webhook := modbilling.NewWebhookHandler(gateway, reconciler, payeeSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.Healthz())
	r.Get("/readyz", httpserver.Readyz(log,
		pg.Healthcheck(pool),
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	))

	r.Mount("/billing", modbilling.Router(modbilling.RouterOptions{
		Subscriptions: subSvc,
		Payees:        payeeSvc,
		Tipsters:      tipsters,
		Webhook:       webhook,
		Identity:      headerIdentity,
		Log:           log,
	}))
	r.Mount("/catalog", catalog.Router(catalog.RouterOptions{
		Offers:   offerSvc,
		Tipsters: tipsters,
		Identity: headerIdentity,
		Log:      log,
	}))
	r.Mount("/", tips.Router(tips.RouterOptions{
		Engine:   engine,
		Offers:   offerSvc,
		Follows:  followSvc,
		Stats:    statsSvc,
		Identity: headerIdentity,
		Log:      log,
	}))

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	return httpserver.New(srvCfg, log).Run(ctx, r)
}

// headerIdentity trusts the X-User-ID header set by the authenticating
// reverse proxy in front of this service. Swap in a session or token
// resolver here when the service terminates auth itself.
func headerIdentity(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
