package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/handler"
	"github.com/suteetoe/learnhub/internal/middleware"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/pkg/config"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/jwtutil"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("learnhub")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting learnhub...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Run migrations then install the row-level policies on top of the
	// migrated tables.
	if err := database.MigrateModels(
		&model.Tenant{},
		&model.SubscriptionPlan{},
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.UserRole{},
		&model.Course{},
		&model.CourseSession{},
		&model.Enrollment{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := database.EnableRowLevelSecurity(db); err != nil {
		log.Fatal("Failed to install row-level policies", zap.Error(err))
	}
	log.Info("Row-level policies installed")

	// The guard turns any unbound tenant-scoped query into a hard error.
	if err := db.Use(database.NewIsolationGuard()); err != nil {
		log.Fatal("Failed to register isolation guard", zap.Error(err))
	}

	// Seed the permission catalog, plan catalog and system roles.
	if err := authz.Bootstrap(context.Background(), db); err != nil {
		log.Fatal("Failed to bootstrap authorization data", zap.Error(err))
	}
	log.Info("Authorization data bootstrapped")

	// Initialize JWT utility
	jwtutil.Initialize(&jwtutil.JWTConfig{
		AccessSigningKey:  cfg.JWT.AccessSigningKey,
		AccessExpiration:  cfg.JWT.AccessExpiration,
		RefreshSigningKey: cfg.JWT.RefreshSigningKey,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
	})
	log.Info("JWT utility initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", prometheus.Handler())

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)

	// API routes - all require an authenticated principal
	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtutil.Default()))

	api.GET("/profile", handler.GetProfile)

	// Tenant administration - system-level capabilities, bound session so the
	// bypass flag reaches the policies for cross-tenant reads.
	tenants := api.Group("/tenants")
	tenants.Use(middleware.TenantSessionMiddleware())
	tenants.POST("", handler.CreateTenant, middleware.RequirePermission(authz.PermTenantsCreate))
	tenants.GET("", handler.ListTenants, middleware.RequirePermission(authz.PermTenantsRead))
	tenants.GET("/current", handler.GetCurrentTenant)
	tenants.PATCH("/:id", handler.UpdateTenant, middleware.RequirePermission(authz.PermTenantsUpdate))
	tenants.DELETE("/:id", handler.DeleteTenant, middleware.RequirePermission(authz.PermTenantsDelete))

	// Tenant-scoped operations - require tenant context and a bound session
	scoped := api.Group("")
	scoped.Use(middleware.RequireTenantContext)
	scoped.Use(middleware.TenantSessionMiddleware())

	courses := scoped.Group("/courses")
	courses.POST("", handler.CreateCourse, middleware.RequirePermission(authz.PermCoursesCreate))
	courses.GET("", handler.ListCourses, middleware.RequirePermission(authz.PermCoursesRead))
	courses.GET("/:id", handler.GetCourse, middleware.RequirePermission(authz.PermCoursesRead))
	courses.PATCH("/:id", handler.UpdateCourse, middleware.RequirePermission(authz.PermCoursesUpdate))
	courses.POST("/:id/publish", handler.PublishCourse, middleware.RequirePermission(authz.PermCoursesPublish))
	courses.DELETE("/:id", handler.DeleteCourse, middleware.RequirePermission(authz.PermCoursesDelete))

	users := scoped.Group("/users")
	users.POST("", handler.CreateUser, middleware.RequirePermission(authz.PermUsersCreate))
	users.GET("", handler.ListUsers, middleware.RequirePermission(authz.PermUsersRead))

	sessions := scoped.Group("/sessions")
	sessions.POST("", handler.CreateSession, middleware.RequirePermission(authz.PermSessionsCreate))
	sessions.GET("", handler.ListSessions, middleware.RequirePermission(authz.PermSessionsRead))
	sessions.GET("/:id/enrollments", handler.ListEnrollments, middleware.RequirePermission(authz.PermEnrollmentsRead))

	enrollments := scoped.Group("/enrollments")
	enrollments.POST("", handler.EnrollStudent, middleware.RequirePermission(authz.PermEnrollmentsCreate))

	roles := scoped.Group("/roles")
	roles.POST("", handler.CreateRole, middleware.RequirePermission(authz.PermRolesCreate))
	roles.GET("", handler.ListRoles, middleware.RequirePermission(authz.PermRolesRead))
	roles.GET("/permissions", handler.ListPermissions, middleware.RequirePermission(authz.PermRolesRead))
	roles.POST("/:id/permissions", handler.GrantRolePermission, middleware.RequirePermission(authz.PermRolesGrant))
	roles.POST("/assignments", handler.AssignRole, middleware.RequirePermission(authz.PermRolesGrant))

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
