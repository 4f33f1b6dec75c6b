package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/config"
	"github.com/riskibarqy/career-engine/internal/domain/career"
	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/matchsim"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/player"
	"github.com/riskibarqy/career-engine/internal/domain/season"
	"github.com/riskibarqy/career-engine/internal/domain/standing"
	"github.com/riskibarqy/career-engine/internal/infrastructure/jobqueue"
	cacherepo "github.com/riskibarqy/career-engine/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/career-engine/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/career-engine/internal/platform/cache"
	idgen "github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/platform/metrics"
	"github.com/riskibarqy/career-engine/internal/platform/resilience"
	"github.com/riskibarqy/career-engine/internal/usecase"
)

const (
	demoUserID = "demo-manager"
	demoTeamID = "ars"
)

type repositories struct {
	tx            usecase.Transactor
	inTx          func(context.Context) bool
	games         game.Repository
	competitions  competition.Repository
	matches       match.Repository
	events        match.EventRepository
	ties          match.CupTieRepository
	players       player.Repository
	suspensions   player.SuspensionRepository
	standings     standing.Repository
	career        career.Repository
	notifications notification.Repository
	archives      season.ArchiveRepository
	finance       finance.Repository
	dispatches    jobscheduler.Repository
}

// Container holds every wired use case of one process.
type Container struct {
	Config  config.Config
	Rules   usecase.GameplayRules
	Logger  *logging.Logger
	Metrics *metrics.Recorder

	Competitions  competition.Repository
	Orchestrator  *usecase.MatchdayOrchestrator
	Finalization  *usecase.MatchFinalizationService
	Resimulation  *usecase.MatchResimulationService
	SeasonEnd     *usecase.SeasonEndPipeline
	CareerActions *usecase.CareerActionProcessor
	Jobs          *usecase.JobOrchestratorService

	closers []func() error
}

// Build opens the configured store and wires the services on top of it.
func Build(ctx context.Context, cfg config.Config, rules usecase.GameplayRules, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Container{
		Config:  cfg,
		Rules:   rules,
		Logger:  logger,
		Metrics: metrics.New("career_engine"),
	}

	repos, err := c.openStore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if cfg.CacheEnabled {
		repos.competitions = cacherepo.NewCompetitionRepository(repos.competitions, basecache.NewStore(cfg.CacheTTL), repos.inTx)
	}
	if err := c.wire(repos); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) openStore(ctx context.Context) (repositories, error) {
	switch c.Config.StoreDriver {
	case config.StorePostgres:
		db, err := openPostgres(ctx, c.Config)
		if err != nil {
			return repositories{}, err
		}
		c.closers = append(c.closers, db.Close)
		if c.Config.SeedDemoCareer {
			if err := postgres.BootstrapSeed(ctx, db, memory.SeedCareer(memory.DemoGameID, demoUserID, demoTeamID)); err != nil {
				return repositories{}, fmt.Errorf("seed demo career: %w", err)
			}
		}
		c.Logger.Info("postgres store ready", "db_name", dbNameFromURL(c.Config.DBURL))
		return postgresRepositories(db), nil
	default:
		store := memory.NewStore()
		if c.Config.SeedDemoCareer {
			store.Load(memory.SeedCareer(memory.DemoGameID, demoUserID, demoTeamID))
		}
		c.Logger.Info("memory store ready", "demo_seeded", c.Config.SeedDemoCareer)
		return memoryRepositories(store), nil
	}
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		tx:            postgres.NewTransactor(db),
		inTx:          postgres.InTx,
		games:         postgres.NewGameRepository(db),
		competitions:  postgres.NewCompetitionRepository(db),
		matches:       postgres.NewMatchRepository(db),
		events:        postgres.NewEventRepository(db),
		ties:          postgres.NewCupTieRepository(db),
		players:       postgres.NewPlayerRepository(db),
		suspensions:   postgres.NewSuspensionRepository(db),
		standings:     postgres.NewStandingRepository(db),
		career:        postgres.NewCareerRepository(db),
		notifications: postgres.NewNotificationRepository(db),
		archives:      postgres.NewArchiveRepository(db),
		finance:       postgres.NewFinanceRepository(db),
		dispatches:    postgres.NewJobDispatchRepository(db),
	}
}

func memoryRepositories(store *memory.Store) repositories {
	return repositories{
		tx:            store,
		inTx:          memory.InTx,
		games:         memory.NewGameRepository(store),
		competitions:  memory.NewCompetitionRepository(store),
		matches:       memory.NewMatchRepository(store),
		events:        memory.NewEventRepository(store),
		ties:          memory.NewCupTieRepository(store),
		players:       memory.NewPlayerRepository(store),
		suspensions:   memory.NewSuspensionRepository(store),
		standings:     memory.NewStandingRepository(store),
		career:        memory.NewCareerRepository(store),
		notifications: memory.NewNotificationRepository(store),
		archives:      memory.NewArchiveRepository(store),
		finance:       memory.NewFinanceRepository(store),
		dispatches:    memory.NewJobDispatchRepository(store),
	}
}

func (c *Container) wire(r repositories) error {
	logger := c.Logger
	rules := c.Rules
	ids := idgen.NewUUIDGenerator()
	sim := matchsim.New(matchsim.DefaultConfig())

	notifier := usecase.NewNotificationService(r.notifications, ids, logger)
	eligibility := usecase.NewEligibilityService(r.suspensions, r.players, notifier, rules, logger)
	standings := usecase.NewStandingsCalculator(r.standings)
	resolver := usecase.NewCupTieResolver(r.matches, r.events, r.ties, r.players, eligibility, sim, ids, logger)
	handlers := usecase.NewHandlerResolver(usecase.HandlerDeps{
		Competitions: r.competitions,
		Matches:      r.matches,
		Ties:         r.ties,
		Standings:    standings,
		Resolver:     resolver,
		Notifier:     notifier,
		IDs:          ids,
		Rules:        rules,
	})

	finalization := usecase.NewMatchFinalizationService(r.tx, r.games, r.matches, r.ties, r.competitions, r.players, resolver, logger)
	usecase.FinalizationListeners{
		Standings:  usecase.NewStandingsListener(standings, handlers),
		Keepers:    usecase.NewGoalkeeperListener(r.players),
		Inbox:      usecase.NewFinalizationNotifier(notifier, r.events, r.suspensions, r.ties),
		PrizeMoney: usecase.NewPrizeMoneyListener(r.finance, notifier),
	}.SubscribeTo(finalization)

	careerActions := usecase.NewCareerActionProcessor(r.tx, r.games, r.career, r.players, notifier, ids, rules, c.Metrics, logger)
	jobs := usecase.NewJobOrchestratorService(careerActions, r.dispatches, logger)
	dispatcher, err := c.newDispatcher(jobs)
	if err != nil {
		return err
	}

	c.Competitions = r.competitions
	c.Finalization = finalization
	c.CareerActions = careerActions
	c.Jobs = jobs
	c.Resimulation = usecase.NewMatchResimulationService(r.tx, r.games, r.matches, r.events, r.players, eligibility, sim, ids, rules, logger)
	c.Orchestrator = usecase.NewMatchdayOrchestrator(usecase.OrchestratorDeps{
		Tx:           r.tx,
		Games:        r.games,
		Players:      r.players,
		Ties:         r.ties,
		Matchdays:    usecase.NewMatchdayService(r.competitions, r.matches, handlers, logger),
		Lineups:      usecase.NewLineupSelector(r.matches),
		Eligibility:  eligibility,
		Processor:    usecase.NewMatchResultProcessor(r.matches, r.events, r.players, r.suspensions, eligibility, standings, rules, logger),
		Standings:    standings,
		Resolver:     resolver,
		Finalization: finalization,
		Notifier:     notifier,
		Simulator:    sim,
		IDs:          ids,
		Dispatcher:   dispatcher,
		DispatchRepo: r.dispatches,
		Rules:        rules,
		Metrics:      c.Metrics,
		Logger:       logger,
	})
	c.SeasonEnd = usecase.NewSeasonEndPipeline(r.tx, r.games, usecase.DefaultSeasonEndStages(usecase.StageDeps{
		Competitions: r.competitions,
		Matches:      r.matches,
		Events:       r.events,
		Ties:         r.ties,
		Players:      r.players,
		Suspensions:  r.suspensions,
		Standings:    standings,
		Career:       r.career,
		Archives:     r.archives,
		Finance:      r.finance,
		Notifier:     notifier,
		Seasons:      sim,
		IDs:          ids,
		Rules:        rules,
		Logger:       logger,
	}), c.Metrics, logger)

	return nil
}

func (c *Container) newDispatcher(jobs *usecase.JobOrchestratorService) (usecase.CareerActionDispatcher, error) {
	cfg := c.Config
	switch cfg.CareerDispatchMode {
	case config.DispatchQStash:
		publisher := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			Timeout:          cfg.QStashTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, nil, c.Logger)
		c.Logger.Info("career actions dispatch via qstash", "target_base_url", cfg.QStashTargetBaseURL)
		return jobqueue.NewQStashDispatcher(publisher), nil
	case config.DispatchNone:
		c.Logger.Warn("career actions dispatch disabled")
		return usecase.NewNoopCareerActionDispatcher(), nil
	default:
		local, err := jobqueue.NewLocalDispatcher(jobs, cfg.CareerWorkerPoolSize, c.Logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error {
			local.Close()
			return nil
		})
		c.Logger.Info("career actions dispatch in process", "workers", cfg.CareerWorkerPoolSize)
		return local, nil
	}
}

// Close drains background jobs before closing the store.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

func NewHTTPServer(c *Container) (*http.Server, error) {
	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Advancer:     c.Orchestrator,
		Finalizer:    c.Finalization,
		Resimulator:  c.Resimulation,
		SeasonEnd:    c.SeasonEnd,
		Jobs:         c.Jobs,
		Competitions: c.Competitions,
		Logger:       c.Logger,
	})
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		SwaggerEnabled:     c.Config.SwaggerEnabled,
		CORSAllowedOrigins: c.Config.CORSAllowedOrigins,
		InternalJobToken:   c.Config.InternalJobToken,
		Metrics:            c.Metrics.Handler(),
	}, c.Logger)

	server := &http.Server{
		Addr:         c.Config.HTTPAddr,
		Handler:      router,
		ReadTimeout:  c.Config.ReadTimeout,
		WriteTimeout: c.Config.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}
