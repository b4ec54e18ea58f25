package components

import (
	"log/slog"

	"stayd/internal/infra/audit"
	"stayd/internal/pkg/clock"
	"stayd/internal/pkg/config"
	"stayd/internal/usecase/commands"
	"stayd/internal/usecase/queries"
	"stayd/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewReservationCommands,
		NewBookingCommands,
		NewAdminCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
		queries.NewAvailabilityQueries,
	),
)

func NewReservationCommands(
	unit shared.UnitOfWork,
	idem shared.IdempotencyRepository,
	reads queries.BookingReadStore,
	snapshots shared.SnapshotCache,
	sink audit.Sink,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) commands.ReservationCommands {
	return commands.NewReservationCommands(unit, idem, reads, snapshots, sink, clk, cfg.Reservation, logger)
}

func NewBookingCommands(
	unit shared.UnitOfWork,
	snapshots shared.SnapshotCache,
	sink audit.Sink,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) commands.BookingCommands {
	return commands.NewBookingCommands(unit, snapshots, sink, clk, cfg.Reservation, logger)
}

func NewAdminCommands(
	unit shared.UnitOfWork,
	bookings commands.BookingCommands,
	snapshots shared.SnapshotCache,
	sink audit.Sink,
	clk clock.Clock,
	logger *slog.Logger,
) commands.AdminCommands {
	return commands.NewAdminCommands(unit, bookings, snapshots, sink, clk, logger)
}
