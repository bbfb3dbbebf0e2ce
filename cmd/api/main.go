package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/praktika-dev/praktika-api/api/swagger"
	"github.com/praktika-dev/praktika-api/internal/handler"
	"github.com/praktika-dev/praktika-api/internal/middleware"
	"github.com/praktika-dev/praktika-api/internal/repository"
	"github.com/praktika-dev/praktika-api/internal/service"
	"github.com/praktika-dev/praktika-api/pkg/cache"
	"github.com/praktika-dev/praktika-api/pkg/config"
	"github.com/praktika-dev/praktika-api/pkg/database"
	"github.com/praktika-dev/praktika-api/pkg/logger"
	corsmiddleware "github.com/praktika-dev/praktika-api/pkg/middleware/cors"
	reqidmiddleware "github.com/praktika-dev/praktika-api/pkg/middleware/requestid"
)

// @title Praktika API
// @version 1.0.0
// @description Internship supervision allocation service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	yearRepo := repository.NewAcademicYearRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	typeRepo := repository.NewInternshipTypeRepository(db)
	demandRepo := repository.NewDemandRepository(db)
	zoneRepo := repository.NewZoneConstraintRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	planRepo := repository.NewPlanRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	creditRepo := repository.NewCreditHourRepository(db)
	changeLogRepo := repository.NewChangeLogRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, validate, logr)
	metricsSvc := service.NewMetricsService()
	creditSvc := service.NewCreditHourService(db, yearRepo, teacherRepo, assignmentRepo, creditRepo, cacheRepo, cfg.Allocation.CreditCacheTTL, logr)
	planSvc := service.NewPlanService(planRepo, yearRepo, changeLogRepo, cacheRepo, db, cfg.Allocation.CurrentPlanCacheTTL, validate, logr)
	assignmentSvc := service.NewAssignmentService(db, assignmentRepo, planRepo, teacherRepo, creditSvc, changeLogRepo, cfg.Allocation.DefaultGroupSize, validate, logr)
	allocationSvc := service.NewAllocationService(planRepo, yearRepo, demandRepo, teacherRepo, zoneRepo, assignmentRepo, creditRepo, creditSvc, changeLogRepo, db, metricsSvc, cfg.Allocation.DefaultGroupSize, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, yearRepo, validate, logr)
	demandSvc := service.NewDemandService(demandRepo, yearRepo, validate, logr)
	referenceSvc := service.NewReferenceService(yearRepo, schoolRepo, subjectRepo, typeRepo, zoneRepo, creditSvc, validate, logr)
	exportSvc := service.NewExportService(planRepo, assignmentRepo, creditRepo, cfg.Exports.Title, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc, creditSvc)
	demandHandler := handler.NewDemandHandler(demandSvc)
	planHandler := handler.NewPlanHandler(planSvc, allocationSvc, exportSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	referenceHandler := handler.NewReferenceHandler(referenceSvc, creditSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/academic-years", referenceHandler.ListYears)
	protected.POST("/academic-years", middleware.RequireRoles("ADMIN"), referenceHandler.CreateYear)
	protected.GET("/academic-years/:id", referenceHandler.GetYear)
	protected.PUT("/academic-years/:id", middleware.RequireRoles("ADMIN"), referenceHandler.UpdateYear)
	protected.PATCH("/academic-years/:id/lock", middleware.RequireRoles("ADMIN"), referenceHandler.SetYearLocked)
	protected.GET("/academic-years/:id/current-plan", planHandler.CurrentForYear)
	protected.GET("/academic-years/:id/credit-hours", referenceHandler.YearCreditHours)

	protected.GET("/schools", referenceHandler.ListSchools)
	protected.GET("/subjects", referenceHandler.ListSubjects)
	protected.GET("/subjects/categories", referenceHandler.ListSubjectCategories)
	protected.GET("/internship-types", referenceHandler.ListInternshipTypes)
	protected.GET("/zone-constraints", referenceHandler.ListZoneConstraints)

	protected.GET("/teachers", teacherHandler.List)
	protected.GET("/teachers/:id", teacherHandler.Get)
	protected.GET("/teachers/:id/qualifications", teacherHandler.Qualifications)
	protected.GET("/teachers/:id/availabilities", teacherHandler.Availabilities)
	protected.PUT("/teachers/:id/availabilities", teacherHandler.SubmitAvailability)
	protected.GET("/teachers/:id/credit-hours", teacherHandler.CreditHours)
	protected.POST("/teachers/:id/credit-hours/recalculate", middleware.RequireRoles("ADMIN", "PLANNER"), teacherHandler.RecalculateCreditHours)

	protected.GET("/demands", demandHandler.List)
	protected.GET("/demands/:id", demandHandler.Get)
	protected.POST("/demands", middleware.RequireRoles("ADMIN", "PLANNER"), demandHandler.Create)
	protected.PUT("/demands/:id", middleware.RequireRoles("ADMIN", "PLANNER"), demandHandler.Update)
	protected.DELETE("/demands/:id", middleware.RequireRoles("ADMIN", "PLANNER"), demandHandler.Delete)

	protected.GET("/plans", planHandler.List)
	protected.GET("/plans/:id", planHandler.Get)
	protected.POST("/plans", middleware.RequireRoles("ADMIN", "PLANNER"), planHandler.Create)
	protected.PUT("/plans/:id", middleware.RequireRoles("ADMIN", "PLANNER"), planHandler.Update)
	protected.PATCH("/plans/:id/status", middleware.RequireRoles("ADMIN", "PLANNER"), planHandler.ChangeStatus)
	protected.POST("/plans/:id/archive", middleware.RequireRoles("ADMIN", "PLANNER"), planHandler.Archive)
	protected.POST("/plans/:id/current", middleware.RequireRoles("ADMIN", "PLANNER"), planHandler.SetCurrent)
	protected.POST("/plans/:id/allocate", middleware.RequireRoles("ADMIN", "PLANNER"), planHandler.Allocate)
	protected.GET("/plans/:id/assignments", assignmentHandler.ListByPlan)
	if cfg.Exports.Enabled {
		protected.GET("/plans/:id/export", planHandler.Export)
	}

	protected.POST("/assignments", middleware.RequireRoles("ADMIN", "PLANNER"), assignmentHandler.Create)
	protected.PUT("/assignments/:id", middleware.RequireRoles("ADMIN", "PLANNER"), assignmentHandler.Update)
	protected.DELETE("/assignments/:id", middleware.RequireRoles("ADMIN", "PLANNER"), assignmentHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
