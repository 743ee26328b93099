package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kundenmagnet/kundenmagnet/internal/api"
	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/internal/qr"
	"github.com/kundenmagnet/kundenmagnet/internal/storage"
	"github.com/kundenmagnet/kundenmagnet/internal/testimonial"
	"github.com/kundenmagnet/kundenmagnet/internal/widget"
	"github.com/kundenmagnet/kundenmagnet/pkg/billing"
	"github.com/kundenmagnet/kundenmagnet/pkg/config"
	"github.com/kundenmagnet/kundenmagnet/pkg/email"
	"github.com/kundenmagnet/kundenmagnet/pkg/httpserver"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/logger"
	"github.com/kundenmagnet/kundenmagnet/pkg/pg"
	"github.com/kundenmagnet/kundenmagnet/pkg/redis"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
	"github.com/kundenmagnet/kundenmagnet/pkg/usage"
)

type appConfig struct {
	// BaseURL is the public origin QR codes and scan redirects resolve
	// against. AppURL points at the tenant dashboard for email links.
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:3000"`
	PlansPath   string `env:"PLANS_PATH"`
	EmailDevDir string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg    appConfig
		logCfg    logger.Config
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
		emailCfg  email.Config
		paddleCfg billing.PaddleConfig
		s3Cfg     storage.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&logCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&paddleCfg)
	config.MustLoad(&s3Cfg)

	log := logger.NewFromConfig(logCfg, logger.WithAttr(logger.Component("server")))

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close redis client", slog.Any("error", err))
		}
	}()

	tenants := tenant.NewPGProvider(pool)
	campaignRepo := campaign.NewPGRepository(pool)
	testimonialRepo := testimonial.NewPGRepository(pool)
	qrRepo := qr.NewPGRepository(pool)

	planSource := limits.NewDefaultSource()
	if appCfg.PlansPath != "" {
		planSource = limits.NewYAMLSource(appCfg.PlansPath)
	}

	limitsSvc, err := limits.NewService(ctx, planSource, usage.NewPGStore(pool), tenant.PlanResolver(tenants),
		limits.WithCounter(limits.ResourceCampaigns, campaignRepo.CountByTenant),
		limits.WithCounter(limits.ResourceQRCodes, qrRepo.CountByTenant),
		limits.WithCounter(limits.ResourceTestimonialsPerCampaign, testimonialRepo.CountByTenant),
		limits.WithCampaignCounter(testimonialRepo.CountByCampaign),
	)
	if err != nil {
		return fmt.Errorf("load plans: %w", err)
	}

	paddle, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return fmt.Errorf("init paddle: %w", err)
	}
	billingSvc := billing.NewService(limitsSvc, paddle, billing.NewPGStore(pool),
		billing.WithPlanAssigner(tenants.UpdatePlan),
		billing.WithLogger(log.With(logger.Component("billing"))),
	)

	sender, err := newSender(emailCfg, appCfg, log)
	if err != nil {
		return fmt.Errorf("init email sender: %w", err)
	}
	notifier := testimonial.NewEmailNotifier(sender, tenants, appCfg.AppURL, log.With(logger.Component("notifier")))

	photos, err := storage.NewPhotoStore(ctx, s3Cfg)
	if err != nil {
		return fmt.Errorf("init photo store: %w", err)
	}

	handler := api.NewRouter(api.Deps{
		Campaigns: campaign.NewService(campaignRepo, limitsSvc, log),
		Testimonials: testimonial.NewService(testimonialRepo, campaignRepo, limitsSvc, log,
			testimonial.WithPhotoUploader(photos),
			testimonial.WithNotifier(notifier),
		),
		QRCodes:     qr.NewService(qrRepo, campaignRepo, limitsSvc, appCfg.BaseURL, log),
		Widget:      widget.NewService(testimonialRepo, campaignRepo, limitsSvc, log),
		Billing:     billingSvc,
		Limits:      limitsSvc,
		Tenants:     tenants,
		TenantCache: tenant.NewRedisCache(rdb),
		Healthcheck: healthcheck(pg.Healthcheck(pool), redis.Healthcheck(rdb)),
		Log:         log,
	})

	return httpserver.New(httpCfg, log).Run(ctx, handler)
}

// newSender falls back to file-based delivery when no Postmark token is
// configured, so local development never sends real mail.
func newSender(cfg email.Config, app appConfig, log *slog.Logger) (email.Sender, error) {
	if cfg.PostmarkServerToken == "" {
		log.Info("no postmark token configured, writing emails to disk", slog.String("dir", app.EmailDevDir))
		return email.NewDevSender(app.EmailDevDir), nil
	}
	return email.NewPostmarkSender(cfg)
}

func healthcheck(probes ...func(context.Context) error) func(*http.Request) error {
	return func(r *http.Request) error {
		for _, probe := range probes {
			if err := probe(r.Context()); err != nil {
				return err
			}
		}
		return nil
	}
}
