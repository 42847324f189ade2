package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type Dependencies struct {
	Recognition handler.Recognizer
	Attendance  handler.AttendanceService
	Enrollment  handler.EnrollmentService
	Hub         *ws.Hub
	// DB is pinged by /ready; nil when every store is file backed.
	DB handler.Pinger
	// RateLimitMax caps requests per IP per minute on /v1. 0 disables it.
	RateLimitMax int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Chamada API",
		BodyLimit:    16 * 1024 * 1024,
		Immutable:    true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db handler.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")

	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:    r.deps.RateLimitMax,
		Window: time.Minute,
	})
	v1.Use(r.rateLimiter.Handler())

	recognitionHandler := handler.NewRecognitionHandler(r.deps.Recognition, r.deps.Attendance, r.logger)
	attendanceHandler := handler.NewAttendanceHandler(r.deps.Attendance, r.logger)
	studentHandler := handler.NewStudentHandler(r.deps.Enrollment, r.logger)

	// Recognition
	v1.Post("/classes/:class/recognize", recognitionHandler.Recognize)
	v1.Post("/classes/:class/scan", recognitionHandler.Scan)

	// Attendance
	v1.Post("/attendance/mark", attendanceHandler.Mark)
	v1.Get("/classes", attendanceHandler.Classes)
	v1.Get("/classes/:class/attendance", attendanceHandler.Dates)
	v1.Get("/classes/:class/attendance/:date", attendanceHandler.List)
	v1.Get("/classes/:class/attendance/:date/export", attendanceHandler.Export)
	v1.Put("/classes/:class/attendance/:date/:reg_no", attendanceHandler.UpdateStatus)

	// Students
	v1.Post("/classes/:class/students", studentHandler.Enroll)
	v1.Get("/classes/:class/students", studentHandler.List)
	v1.Post("/students/import", studentHandler.Import)
	v1.Get("/students/:reg_no", studentHandler.Get)

	// Live attendance feed per class
	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		v1.Get("/classes/:class/live", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
