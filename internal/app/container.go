package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-backend/internal/api"
	"github.com/slotwise/booking-backend/internal/auth"
	"github.com/slotwise/booking-backend/internal/booking"
	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/db"
	"github.com/slotwise/booking-backend/internal/events"
	"github.com/slotwise/booking-backend/internal/slot"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	LockTimeout  time.Duration
	Publisher    events.Publisher
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	txRunner := db.NewPgxRunner(cfg.DBPool, cfg.LockTimeout)

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	// Catalog Module
	catalogRepo := catalog.NewPgxRepository(cfg.DBPool)
	catalogService := catalog.NewService(catalogRepo)

	// Slot Module
	slotRepo := slot.NewPgxRepository(cfg.DBPool)
	slotService := slot.NewService(slotRepo, catalogService, txRunner, publisher)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, slotRepo, catalogService, txRunner, publisher)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		CatalogService: catalogService,
		SlotService:    slotService,
		BookingService: bookingService,
		JWTManager:     jwtManager,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}
}
