package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"finlense-server/src/alerts"
	"finlense-server/src/api"
	"finlense-server/src/config"
	"finlense-server/src/db"
	sqlstore "finlense-server/src/db/sql"
	"finlense-server/src/events"
	"finlense-server/src/events/kafka"
	"finlense-server/src/insights"
	"finlense-server/src/ledger"
	"finlense-server/src/mail"
	"finlense-server/src/reports"
	"finlense-server/src/scheduler"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("DB migration failed: %v", err)
	}

	db.InitCache()
	store := sqlstore.NewStore(pool)

	// Event bus
	var (
		publisher events.Publisher
		consumer  events.Consumer
	)
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID)
		log.Printf("INFO: using kafka brokers %v", cfg.KafkaBrokers)
	} else {
		bus := events.NewChannelBus(cfg.PageSize)
		defer bus.Close()
		publisher = bus
		consumer = bus
		log.Println("INFO: KAFKA_BROKERS not set, using in-process event bus")
	}

	// Insights
	var summarizer insights.Summarizer
	gemini, err := insights.NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case errors.Is(err, insights.ErrNotConfigured):
		log.Println("INFO: GEMINI_API_KEY not set, reports use computed insights")
	case err != nil:
		log.Printf("ERROR: Gemini client init failed, reports use computed insights: %v", err)
	default:
		defer gemini.Close()
		summarizer = gemini
	}

	// Mail
	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		log.Println("INFO: RESEND_API_KEY not set, emails are logged only")
	}

	// Domain services
	accounts := ledger.NewAccounts(store, nil)
	recurring := scheduler.NewRecurringScheduler(
		ledger.NewDueSelector(store, cfg.PageSize),
		ledger.NewProcessor(store, nil),
		publisher,
		scheduler.Options{
			RateLimit:     cfg.RecurringRateLimit,
			RateWindow:    cfg.RecurringRateWindow,
			MaxRetries:    cfg.RecurringMaxRetries,
			RetryInterval: cfg.RecurringRetryInterval,
		},
	)
	tracker := alerts.NewTracker(db.NewCachedDefaultAccounts(store), store, nil)
	monthlyReport := reports.NewMonthlyReportJob(store, reports.NewStatsAggregator(store), insights.NewGenerator(summarizer), mailer, nil, cfg.PageSize)
	budgetAlerts := alerts.NewBudgetAlertJob(store, tracker, mailer, nil, cfg.PageSize)

	// Scheduled jobs
	loc, err := time.LoadLocation(cfg.CronTimezone)
	if err != nil {
		log.Fatalf("Invalid CRON_TIMEZONE %q: %v", cfg.CronTimezone, err)
	}
	crons := scheduler.NewCron(loc, cfg.JobTimeout)
	jobs := []struct {
		name, spec string
		job        scheduler.Job
	}{
		{"recurring-sweep", cfg.RecurringCron, func(ctx context.Context) error {
			_, err := recurring.Trigger(ctx)
			return err
		}},
		{"monthly-report", cfg.MonthlyReportCron, func(ctx context.Context) error {
			_, err := monthlyReport.Run(ctx)
			return err
		}},
		{"budget-alerts", cfg.BudgetAlertCron, func(ctx context.Context) error {
			_, err := budgetAlerts.Run(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		if err := crons.Register(j.name, j.spec, j.job); err != nil {
			log.Fatalf("Cron setup failed: %v", err)
		}
	}
	crons.Start()
	defer crons.Stop()

	go func() {
		if err := recurring.Run(ctx, consumer, cfg.RecurringWorkers); err != nil {
			log.Printf("ERROR: recurring workers stopped: %v", err)
			stop()
		}
	}()

	// Router
	router := api.NewRouter(api.Deps{
		Accounts:      accounts,
		Budgets:       store,
		Users:         store,
		Tracker:       tracker,
		Recurring:     recurring,
		MonthlyReport: monthlyReport,
		BudgetAlerts:  budgetAlerts,
		JWTSecret:     cfg.JWTSecret,
		JobTokenHash:  cfg.JobTokenHash,
		CORSOrigins:   cfg.CORSOrigins,
		ReadOnly:      cfg.ReadOnly,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: server shutdown: %v", err)
		}
	}()

	log.Println("API server running on port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("API server stopped")
}
