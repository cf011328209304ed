package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authconsumers "github.com/dentora/dentora-backend/internal/auth/consumers"
	authevents "github.com/dentora/dentora-backend/internal/auth/events"
	authhandler "github.com/dentora/dentora-backend/internal/auth/handler"
	"github.com/dentora/dentora-backend/internal/auth/jwt"
	authmw "github.com/dentora/dentora-backend/internal/auth/middleware"
	authrepo "github.com/dentora/dentora-backend/internal/auth/repository"
	authservice "github.com/dentora/dentora-backend/internal/auth/service"
	clinicalevents "github.com/dentora/dentora-backend/internal/clinical/events"
	clinicalhandler "github.com/dentora/dentora-backend/internal/clinical/handler"
	clinicalrepo "github.com/dentora/dentora-backend/internal/clinical/repository"
	clinicalservice "github.com/dentora/dentora-backend/internal/clinical/service"
	registryevents "github.com/dentora/dentora-backend/internal/registry/events"
	registryhandler "github.com/dentora/dentora-backend/internal/registry/handler"
	registryrepo "github.com/dentora/dentora-backend/internal/registry/repository"
	registryservice "github.com/dentora/dentora-backend/internal/registry/service"
	schedevents "github.com/dentora/dentora-backend/internal/scheduling/events"
	schedhandler "github.com/dentora/dentora-backend/internal/scheduling/handler"
	schedrepo "github.com/dentora/dentora-backend/internal/scheduling/repository"
	schedservice "github.com/dentora/dentora-backend/internal/scheduling/service"
	usersevents "github.com/dentora/dentora-backend/internal/users/events"
	usershandler "github.com/dentora/dentora-backend/internal/users/handler"
	usersrepo "github.com/dentora/dentora-backend/internal/users/repository"
	usersservice "github.com/dentora/dentora-backend/internal/users/service"
	"github.com/dentora/dentora-backend/pkg/config"
	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
	"github.com/dentora/dentora-backend/pkg/tokencache"
)

const loginRateLimit = 5 // requests per second per client

func main() {
	cfg, err := config.LoadWithValidation("clinic-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("clinic-api", cfg.Server.Environment)
	log.Info().Msg("starting Clinic API")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	revoked, err := tokencache.New(&cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer revoked.Close()

	// Event publishers
	tenantPublisher, err := authevents.NewTenantEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create tenant event publisher")
	}
	userPublisher, err := usersevents.NewUserEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event publisher")
	}
	registryPublisher, err := registryevents.NewRegistryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create registry event publisher")
	}
	schedulingPublisher, err := schedevents.NewSchedulingEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduling event publisher")
	}
	clinicalPublisher, err := clinicalevents.NewClinicalEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create clinical event publisher")
	}

	// Repositories
	tenantRepo := authrepo.NewTenantRepository(db)
	directoryRepo := authrepo.NewDirectoryRepository(db)
	sessionRepo := authrepo.NewSessionRepository(db)
	userRepo := usersrepo.NewUserRepository(db)
	auditRepo := usersrepo.NewAuditRepository(db)
	patientRepo := registryrepo.NewPatientRepository(db)
	doctorRepo := registryrepo.NewDoctorRepository(db)
	appointmentRepo := schedrepo.NewAppointmentRepository(db)
	prescriptionRepo := clinicalrepo.NewPrescriptionRepository(db)
	caseStudyRepo := clinicalrepo.NewCaseStudyRepository(db)
	chartRepo := clinicalrepo.NewDentalChartRepository(db)

	// Services
	jwtManager := jwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(directoryRepo, tenantRepo, sessionRepo, userRepo, jwtManager, revoked, log)
	signupService := authservice.NewSignupService(db, tenantRepo, directoryRepo, userRepo, tenantPublisher, log)
	tenantService := authservice.NewTenantService(tenantRepo, tenantPublisher, log)
	userService := usersservice.NewUserService(db, userRepo, auditRepo, userPublisher, log)
	patientService := registryservice.NewPatientService(patientRepo, registryPublisher, log)
	doctorService := registryservice.NewDoctorService(doctorRepo, registryPublisher, log)
	appointmentService := schedservice.NewAppointmentService(appointmentRepo, patientRepo, doctorRepo, schedulingPublisher, log)
	clinicalService := clinicalservice.NewClinicalService(prescriptionRepo, caseStudyRepo, chartRepo, patientRepo, doctorRepo, clinicalPublisher, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authService, signupService, log)
	tenantHandler := authhandler.NewTenantHandler(tenantService, log)
	userHandler := usershandler.NewUserHandler(userService, log)
	patientHandler := registryhandler.NewPatientHandler(patientService, log)
	doctorHandler := registryhandler.NewDoctorHandler(doctorService, log)
	appointmentHandler := schedhandler.NewAppointmentHandler(appointmentService, log)
	clinicalHandler := clinicalhandler.NewClinicalHandler(clinicalService, log)

	authenticator := authmw.NewAuthenticator(jwtManager, revoked, log)

	// Directory sync consumer
	directoryConsumer, err := authconsumers.NewDirectoryEventConsumer(rmq, directoryRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create directory consumer")
	}
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		if err := directoryConsumer.Start(consumerCtx); err != nil {
			log.Error().Err(err).Msg("directory consumer stopped")
		}
	}()

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "clinic-api",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
			"redis":    revoked.Health(r.Context()),
		})
	})

	// Public endpoints: registration, login, refresh. Rate limited,
	// no tenant context yet.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httputil.RateLimit(loginRateLimit, loginRateLimit*2))
			authHandler.PublicRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Authenticate)
			authHandler.ProtectedRoutes(r)
		})
	})

	// Protected endpoints: every route below resolves its tenant from
	// the access token.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticator.Authenticate)

		r.Route("/clinic", func(r chi.Router) {
			r.Use(authmw.RequirePermission("*"))
			tenantHandler.Routes(r)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authmw.RequirePermission("*"))
			userHandler.Routes(r)
		})

		r.Route("/patients", func(r chi.Router) {
			r.Use(authmw.RequirePermission("patients.read"))
			patientHandler.Routes(r)
			clinicalHandler.PatientClinicalRoutes(r)
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Use(authmw.RequirePermission("doctors.read"))
			doctorHandler.Routes(r)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Use(authmw.RequirePermission("appointments.read"))
			appointmentHandler.Routes(r)
		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.Use(authmw.RequirePermission("prescriptions.read"))
			clinicalHandler.PrescriptionRoutes(r)
		})

		r.Route("/cases", func(r chi.Router) {
			r.Use(authmw.RequirePermission("casestudies.read"))
			clinicalHandler.CaseStudyRoutes(r)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
