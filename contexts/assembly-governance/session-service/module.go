package sessionservice

import (
	"log/slog"
	"time"

	httpadapter "plenum/contexts/assembly-governance/session-service/adapters/http"
	"plenum/contexts/assembly-governance/session-service/adapters/memory"
	"plenum/contexts/assembly-governance/session-service/application/commands"
	"plenum/contexts/assembly-governance/session-service/application/queries"
	"plenum/contexts/assembly-governance/session-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Meetings       ports.MeetingRepository
	Motions        ports.MotionRepository
	Ballots        ports.BallotRepository
	Attendance     ports.AttendanceRepository
	Directory      ports.MemberDirectory
	Policies       ports.PolicyStore
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	meetingUseCase := commands.MeetingUseCase{
		Meetings: deps.Meetings,
		Motions:  deps.Motions,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	motionUseCase := commands.MotionUseCase{
		Meetings:   deps.Meetings,
		Motions:    deps.Motions,
		Ballots:    deps.Ballots,
		Attendance: deps.Attendance,
		Directory:  deps.Directory,
		Policies:   deps.Policies,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	ballotUseCase := commands.BallotUseCase{
		Motions:        deps.Motions,
		Ballots:        deps.Ballots,
		Attendance:     deps.Attendance,
		Directory:      deps.Directory,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	attendanceUseCase := commands.AttendanceUseCase{
		Meetings:   deps.Meetings,
		Attendance: deps.Attendance,
		Directory:  deps.Directory,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	projectionUseCase := queries.ProjectionUseCase{
		Meetings:   deps.Meetings,
		Motions:    deps.Motions,
		Ballots:    deps.Ballots,
		Attendance: deps.Attendance,
		Directory:  deps.Directory,
	}
	return Module{
		Handler: httpadapter.Handler{
			Meetings:    meetingUseCase,
			Motions:     motionUseCase,
			Ballots:     ballotUseCase,
			Attendance:  attendanceUseCase,
			Projections: projectionUseCase,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against a single in-memory store, used
// for local development and tests. The store doubles as member directory and
// policy store; seed it through its setters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Meetings:       store,
		Motions:        store,
		Ballots:        store,
		Attendance:     store,
		Directory:      store,
		Policies:       store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
