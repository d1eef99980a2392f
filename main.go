package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/Chative-Banking-Frontline/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/Chative-Banking-Frontline/agent/agents/specialist"
	bankx "github.com/tanpawarit/Chative-Banking-Frontline/agent/bank"
	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	llmx "github.com/tanpawarit/Chative-Banking-Frontline/agent/llm"
	metricsx "github.com/tanpawarit/Chative-Banking-Frontline/agent/metrics"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
	"github.com/tanpawarit/Chative-Banking-Frontline/api"
	configx "github.com/tanpawarit/Chative-Banking-Frontline/pkg/config"
	logx "github.com/tanpawarit/Chative-Banking-Frontline/pkg/logger"
	openrouterx "github.com/tanpawarit/Chative-Banking-Frontline/pkg/openrouter"
	postgresx "github.com/tanpawarit/Chative-Banking-Frontline/pkg/postgres"
	quotex "github.com/tanpawarit/Chative-Banking-Frontline/pkg/quote"
)

type AppConfig struct {
	CollaboratorTimeout time.Duration `split_words:"true" default:"10s"`
	MaxChain            int           `split_words:"true" default:"4"`
	StoreShards         int           `split_words:"true" default:"32"`
}

type ledger interface {
	contractx.CustomerDirectory
	contractx.ScoreRegistry
}

func main() {
	listModels := flag.Bool("list-models", false, "print the models exposed by the configured endpoint and exit")

	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listModels {
		ids, err := openrouterx.ListModels(ctx, llmCfg.Endpoint())
		if err != nil {
			log.Fatal().Err(err).Msg("list models failed")
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return
	}

	appCfg := configx.MustNew[AppConfig]("BANK")
	dbCfg := configx.MustNew[postgresx.Config]("DATABASE")
	quoteCfg := configx.MustNew[quotex.Config]("QUOTE")
	httpCfg := configx.MustNew[api.Config]("HTTP")

	books, closeBooks, err := openLedger(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open ledger failed")
	}
	defer closeBooks()

	quoteClient := quotex.MustNew(*quoteCfg)
	rates, err := bankx.NewRates(quoteClient)
	if err != nil {
		log.Fatal().Err(err).Msg("rates adapter failed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metricsx.New(reg)

	agents, err := specialistx.NewRegistry(ctx, *llmCfg, specialistx.Deps{
		Directory:    books,
		Rates:        rates,
		Registry:     books,
		Metrics:      metrics,
		Timeout:      appCfg.CollaboratorTimeout,
		HomeCurrency: quoteClient.HomeCurrency(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build agents failed")
	}

	router, err := orchestratorx.New(
		statex.NewMemoryStore(statex.WithShards(appCfg.StoreShards)),
		agents,
		metrics,
		orchestratorx.Config{MaxChain: appCfg.MaxChain},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator failed")
	}

	srv := &http.Server{
		Addr:         httpCfg.Address,
		Handler:      api.NewRouter(api.NewHandler(router), reg, httpCfg.AllowedOrigins),
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	stop()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// openLedger uses Postgres when a DSN is configured and the seeded demo ledger otherwise.
func openLedger(ctx context.Context, cfg postgresx.Config) (ledger, func(), error) {
	if !cfg.Enabled() {
		log.Warn().Msg("DATABASE_DSN not set, using in-memory demo ledger")
		return bankx.NewDemoLedger(), func() {}, nil
	}

	db, err := postgresx.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}

	books, err := bankx.NewLedger(db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	if cfg.Seed {
		if err := books.EnsureSchema(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		if err := books.Seed(ctx, bankx.DemoCustomers(), bankx.DefaultTiers()); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	return books, closeDB, nil
}
