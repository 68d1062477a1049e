package server

import (
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/assessment"
	"backend-optikick/internal/auth"
	"backend-optikick/internal/classifier"
	"backend-optikick/internal/config"
	"backend-optikick/internal/dashboard"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/messaging"
	"backend-optikick/internal/metrics"
	"backend-optikick/internal/notify"
	"backend-optikick/internal/program"
	"backend-optikick/internal/storage"
	"backend-optikick/internal/stream"
	"backend-optikick/internal/team"
	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	accesslog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"
)

// Uploads are capped at 10 MB; the extra megabyte covers multipart framing.
const bodyLimit = 11 << 20

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Logger *log.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, logger *log.Logger) *Server {
	logger = logging.OrDiscard(logger)
	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler(logger),
		BodyLimit:    bodyLimit,
	})
	app.Use(recover.New())
	app.Use(accesslog.New())
	app.Use(cors.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, logger),
		Logger: logger,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	var gate user.RoleGate = auth.RequireRoles

	users := user.NewService(s.DB)
	notifier := notify.NewNotifier(users, s.Logger)
	files := storage.NewService(s.DB, s.Cfg.StorageDir, s.Cfg.StoragePublicURL)
	samples := metrics.NewService(s.DB, users, notifier)
	ai := classifier.NewClient(s.Cfg.AIClassifierURL, s.Cfg.AITimeout, s.Cfg.AIRequestsPerMinute, s.Logger)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware, auth.LoginLimiter(s.Cfg.LoginRatePerMinute))
	user.RegisterRoutes(s.App, users, jwtMiddleware, gate)
	team.RegisterRoutes(s.App, team.NewService(s.DB), jwtMiddleware, gate)
	metrics.RegisterRoutes(s.App, samples, jwtMiddleware, gate)
	assessment.RegisterRoutes(s.App, assessment.NewService(s.DB, users, notifier, time.UTC), jwtMiddleware, gate)
	program.RegisterRoutes(s.App, program.NewService(s.DB, users, samples, ai, notifier), jwtMiddleware, gate)
	dashboard.RegisterRoutes(s.App, dashboard.NewService(s.DB, users, samples, s.Redis, s.Logger), jwtMiddleware, gate)
	messaging.RegisterRoutes(s.App, messaging.NewService(s.DB, users, files, notifier, s.Stream, s.Logger), jwtMiddleware)
	notify.RegisterRoutes(s.App, notify.NewService(s.DB, s.Stream), jwtMiddleware)

	if s.Cfg.StorageDir != "" {
		s.App.Static(s.Cfg.StoragePublicURL, s.Cfg.StorageDir)
	}
	storage.RegisterRoutes(s.App, files, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}
