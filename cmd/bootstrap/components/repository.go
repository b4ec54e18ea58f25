package components

import (
	"context"

	"stayd/internal/infra/audit"
	"stayd/internal/infra/cache"
	"stayd/internal/infra/db"
	"stayd/internal/infra/readstore"
	repo_impl "stayd/internal/infra/repository"
	"stayd/internal/infra/uow"
	"stayd/internal/pkg/config"
	"stayd/internal/usecase/queries"
	"stayd/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		NewUnitOfWork,
		NewSnapshotCache,
		NewAuditSink,
		// Pool-bound idempotency repository: the winner/loser race and the
		// compensating delete run outside the reservation transaction.
		fx.Annotate(
			repo_impl.NewIdempotencyRepository,
			fx.As(new(shared.IdempotencyRepository)),
		),
		// Read-side stores for queries
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
		fx.Annotate(
			readstore.NewRoomTypeReadStore,
			fx.As(new(queries.RoomTypeReadStore)),
		),
		fx.Annotate(
			readstore.NewAvailabilityReadStore,
			fx.As(new(queries.AvailabilityReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewUnitOfWork(pool *pgxpool.Pool, cfg config.Config) shared.UnitOfWork {
	return uow.NewPostgresUoW(pool, cfg.Reservation)
}

// NewSnapshotCache wires redis when configured and degrades to a no-op
// cache otherwise, so local runs do not need a redis instance.
func NewSnapshotCache(cfg config.Config) (shared.SnapshotCache, error) {
	if cfg.Redis.Addr == "" {
		return cache.NewNop(), nil
	}
	return cache.NewAvailabilityCache(cfg.Redis)
}

func NewAuditSink(lc fx.Lifecycle, cfg config.Config) audit.Sink {
	var sink audit.Sink
	if len(cfg.Audit.Brokers) == 0 || cfg.Audit.Brokers[0] == "" {
		sink = audit.NewNopSink()
	} else {
		sink = audit.NewKafkaSink(cfg.Audit)
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return sink.Close()
		},
	})
	return sink
}
