package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/careassist/careassist/internal/config"
	"github.com/careassist/careassist/internal/domain/pharmacy"
	"github.com/careassist/careassist/internal/domain/symptom"
	"github.com/careassist/careassist/internal/platform/auth"
	"github.com/careassist/careassist/internal/platform/db"
	"github.com/careassist/careassist/internal/platform/metrics"
	"github.com/careassist/careassist/internal/platform/middleware"
	"github.com/careassist/careassist/internal/platform/onnx"
	"github.com/careassist/careassist/internal/platform/phi"
)

// server owns the echo instance and whatever must be released on exit.
type server struct {
	echo    *echo.Echo
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// buildServer wires stores, services, middleware and routes.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	srv := &server{}

	symptomSvc, closeClassifier, err := newSymptomService(cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, closeClassifier)

	var (
		pool   *pgxpool.Pool
		fields pharmacy.FieldCipher
	)
	if cfg.StoreBackend == config.StorePostgres {
		cipher, err := phi.NewService(cfg.PHIEncryptionKey, logger)
		if err != nil {
			srv.Close()
			return nil, err
		}
		fields = cipher

		pool, err = db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		}, logger)
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		srv.closers = append(srv.closers, pool.Close)
	}
	pharmacySvc := newPharmacyService(cfg, pool, fields, logger)

	metrics.Register()
	srv.echo = newEcho(cfg, logger, symptomSvc, pharmacySvc, pool)
	return srv, nil
}

func newEcho(cfg *config.Config, logger zerolog.Logger, symptomSvc *symptom.Service, pharmacySvc *pharmacy.Service, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Sanitize(logger))

	if cfg.IsDev() {
		logger.Warn().Msg("development auth enabled: unauthenticated requests act as admin")
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	root := e.Group("")
	root.GET("/metrics", metrics.Handler())
	if pool != nil {
		root.GET("/health/db", db.HealthHandler(pool, logger))
	}

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	api := e.Group("/api/v1",
		middleware.RateLimit(rl),
		middleware.Audit(logger, middleware.AuditRecorderFunc(recordAccess)),
	)

	symptom.NewHandler(symptomSvc).RegisterRoutes(api, root)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api, root)
	return e
}

func recordAccess(entry middleware.AuditEntry) error {
	metrics.IncRecordAccess(entry.Resource, entry.Action, entry.StatusCode)
	return nil
}

// newSymptomService loads the knowledge base and, when configured, a
// classifier. A classifier that fails to load is logged and skipped; the
// analyzer then relies on dataset matching alone.
func newSymptomService(cfg *config.Config, logger zerolog.Logger) (*symptom.Service, func(), error) {
	kb, err := symptom.LoadKnowledgeBase(cfg.DataDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load knowledge base: %w", err)
	}

	classifier, closeFn := loadClassifier(cfg, kb, logger)
	svc := symptom.NewService(kb, classifier, symptom.Options{
		FeatureThreshold: cfg.FeatureMatchThreshold,
		DiseaseThreshold: cfg.DiseaseMatchThreshold,
		Logger:           logger,
	}, version)
	return svc, closeFn, nil
}

func loadClassifier(cfg *config.Config, kb *symptom.KnowledgeBase, logger zerolog.Logger) (symptom.Classifier, func()) {
	noop := func() {}
	nFeatures := kb.Vocabulary.Len()

	switch {
	case cfg.ONNXModelPath != "":
		c, err := onnx.Load(onnx.Config{
			ModelPath:   cfg.ONNXModelPath,
			LibraryPath: cfg.ONNXRuntimeLib,
			InputName:   cfg.ONNXInputName,
			OutputName:  cfg.ONNXOutputName,
			Classes:     kb.DiseaseList,
			NumFeatures: nFeatures,
		})
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.ONNXModelPath).Msg("onnx classifier unavailable")
			return nil, noop
		}
		logger.Info().Str("path", cfg.ONNXModelPath).Int("classes", len(c.Classes())).Msg("onnx classifier loaded")
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("close onnx classifier")
			}
		}

	case cfg.ModelPath != "":
		nb, err := symptom.LoadNaiveBayes(cfg.ModelPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.ModelPath).Msg("naive bayes classifier unavailable")
			return nil, noop
		}
		if nb.NumFeatures() != nFeatures {
			logger.Warn().
				Int("model_features", nb.NumFeatures()).
				Int("vocabulary", nFeatures).
				Msg("classifier does not match the symptom vocabulary, ignoring it")
			return nil, noop
		}
		logger.Info().Str("path", cfg.ModelPath).Int("classes", len(nb.Classes())).Msg("naive bayes classifier loaded")
		return nb, noop
	}

	logger.Info().Msg("no classifier configured, using dataset matching")
	return nil, noop
}

func newPharmacyService(cfg *config.Config, pool *pgxpool.Pool, fields pharmacy.FieldCipher, logger zerolog.Logger) *pharmacy.Service {
	prescriptions, orders := pharmacy.NewPrescriptionStoreMemory(), pharmacy.NewOrderStoreMemory()
	if pool != nil {
		prescriptions, orders = pharmacy.NewPrescriptionStorePG(pool, fields), pharmacy.NewOrderStorePG(pool, fields)
	}

	// A nil *LLMExtractor must not reach the interface.
	var llm pharmacy.Extractor
	if cfg.LLMEnabled() {
		llm = pharmacy.NewLLMExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info().Str("model", cfg.OpenAIModel).Msg("llm prescription extraction enabled")
	}
	return pharmacy.NewService(prescriptions, orders, nil, llm, logger)
}

// stderrLogger is used by commands that print results on stdout.
func stderrLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}
