//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"stayd/cmd/bootstrap/components"
	"stayd/internal/handler/middleware"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/config"
	"stayd/tests/common/dbtest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/fx"
)

var (
	postgresOnce      sync.Once
	postgresContainer *tcpostgres.PostgresContainer

	testUser     = "test"
	testPassword = "testpass"
)

func setupE2EEnvironment(t *testing.T) (*pgxpool.Pool, *gin.Engine, config.Config) {
	gin.SetMode(gin.TestMode)
	host, port := startPostgresOnce(t)

	pool, dbConfig := prepareDatabase(t, host, port)

	router, cfg, app := buildApp(pool, dbConfig)
	require.NotNil(t, router, "Failed to build router")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			slog.Warn("Failed to stop fx application", "error", err.Error())
		}
	})

	return pool, router, cfg
}

// startPostgresOnce starts a single shared PostgreSQL container; each test
// process gets its own database inside it.
func startPostgresOnce(t *testing.T) (string, string) {
	postgresOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
		defer cancel()

		ctr, err := tcpostgres.Run(ctx, "postgres:17",
			tcpostgres.WithDatabase("postgres"),
			tcpostgres.WithUsername(testUser),
			tcpostgres.WithPassword(testPassword),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")
		postgresContainer = ctr

		t.Cleanup(func() {
			termCtx, termCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer termCancel()
			if err := postgresContainer.Terminate(termCtx); err != nil {
				slog.Warn("Failed to terminate PostgreSQL container", "error", err.Error())
			}
		})
	})

	ctx := context.Background()
	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err, "Failed to resolve container host")
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "Failed to resolve container port")
	return host, port.Port()
}

func prepareDatabase(t *testing.T, host, port string) (*pgxpool.Pool, config.DBConfig) {
	dbName := "testdb_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	adminDSN := fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=disable",
		testUser, testPassword, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminPool, err := pgxpool.New(ctx, adminDSN)
	require.NoError(t, err, "Failed to open admin connection")
	defer adminPool.Close()

	_, err = adminPool.Exec(ctx, "CREATE DATABASE "+dbName)
	require.NoError(t, err, "Failed to create test database")

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()

		cleanupPool, err := pgxpool.New(cleanupCtx, adminDSN)
		if err != nil {
			slog.Warn("Failed to open cleanup connection", "database", dbName, "error", err.Error())
			return
		}
		defer cleanupPool.Close()

		if _, err := cleanupPool.Exec(cleanupCtx, "DROP DATABASE IF EXISTS "+dbName); err != nil {
			slog.Warn("Failed to drop test database", "database", dbName, "error", err.Error())
		}
	})

	dbConfig := config.DBConfig{
		Host:     host,
		Port:     port,
		User:     testUser,
		Password: testPassword,
		DBName:   dbName,
		SSLMode:  "disable",
	}

	require.NoError(t, db.Migrate(dbConfig), "Failed to run migrations")

	pool, _, err := db.Connect(dbConfig)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	return pool, dbConfig
}

func buildApp(pool *pgxpool.Pool, dbConfig config.DBConfig) (*gin.Engine, config.Config, *fx.App) {
	var router *gin.Engine
	var cfg config.Config

	app := fx.New(
		fx.Provide(
			func() *pgxpool.Pool { return pool },
			func() config.Config { return newTestConfig(dbConfig) },
			func() *gin.Engine { return gin.New() },
			func(c config.Config) *slog.Logger { return middleware.NewLogger(c.Log).GetSlogLogger() },
		),
		components.RepositoryModule,
		components.UseCaseModule,
		components.HandlerModule,

		fx.Populate(&router, &cfg),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to start fx app: %v", err))
	}

	return router, cfg, app
}

func newTestConfig(dbConfig config.DBConfig) config.Config {
	cfg := config.NewTestConfig()
	cfg.DB = dbConfig
	return cfg
}

// SharedSuite wires a real database-backed application for e2e suites.
type SharedSuite struct {
	suite.Suite
	Router *gin.Engine
	DB     *pgxpool.Pool
	Config config.Config
}

func (s *SharedSuite) SetupSuite() {
	pool, router, cfg := setupE2EEnvironment(s.T())
	s.DB = pool
	s.Router = router
	s.Config = cfg
}

func (s *SharedSuite) SetupSubTest() {
	require.NoError(s.T(), dbtest.ResetDB(s.DB), "Failed to reset database state")
}
