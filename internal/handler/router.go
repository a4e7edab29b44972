package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/middleware"
	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/config"
	"github.com/noah-isme/student-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-records-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Students    *StudentHandler
	Courses     *CourseHandler
	Semesters   *SemesterHandler
	Classes     *ClassHandler
	Reference   *ReferenceHandler
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Transcripts *TranscriptHandler
	Metrics     *MetricsHandler
}

// RouterConfig carries the cross-cutting dependencies of the router.
type RouterConfig struct {
	APIPrefix  string
	CORS       config.CORSConfig
	EnableDocs bool
	// Tokens verifies bearer tokens. Nil leaves every route open.
	Tokens  middleware.TokenValidator
	Metrics *service.MetricsService
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Tokens != nil {
		api.Use(middleware.OptionalJWT(cfg.Tokens))
	}
	api.Use(middleware.Audit(cfg.Logger))

	guard := func(allowed ...string) []gin.HandlerFunc {
		if cfg.Tokens == nil {
			return nil
		}
		return []gin.HandlerFunc{middleware.JWT(cfg.Tokens), middleware.RBAC(allowed...)}
	}
	route := func(handlers []gin.HandlerFunc, final gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, handlers...), final)
	}

	staff := guard(string(models.RoleAdmin), string(models.RoleRegistrar))
	staffOrSelf := guard(string(models.RoleAdmin), string(models.RoleRegistrar), middleware.RoleSelf)
	graders := guard(string(models.RoleAdmin), string(models.RoleRegistrar), string(models.RoleTeacher))
	anyUser := guard(string(models.RoleAdmin), string(models.RoleRegistrar), string(models.RoleTeacher), string(models.RoleStudent))

	api.GET("/metrics/summary", route(staff, h.Metrics.Summary)...)
	api.GET("/reference", h.Reference.Get)

	students := api.Group("/students")
	students.GET("", route(graders, h.Students.List)...)
	students.POST("", route(staff, h.Students.Create)...)
	students.GET("/:id", route(staffOrSelf, h.Students.Get)...)
	students.PUT("/:id", route(staff, h.Students.Update)...)
	students.DELETE("/:id", route(staff, h.Students.Delete)...)
	students.PUT("/:id/addresses", route(staff, h.Students.ReplaceAddresses)...)
	students.PUT("/:id/identity-paper", route(staff, h.Students.ReplaceIdentityPaper)...)
	students.GET("/:id/transcript", route(staffOrSelf, h.Transcripts.Get)...)
	students.POST("/:id/transcript/export", route(staffOrSelf, h.Transcripts.Export)...)

	api.GET("/transcripts/download/:token", h.Transcripts.Download)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", route(staff, h.Courses.Create)...)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", route(staff, h.Courses.Update)...)
	courses.PUT("/:id/prerequisites", route(staff, h.Courses.ReplacePrerequisites)...)

	semesters := api.Group("/semesters")
	semesters.GET("", h.Semesters.List)
	semesters.POST("", route(staff, h.Semesters.Create)...)
	semesters.GET("/:id", h.Semesters.Get)
	semesters.PUT("/:id", route(staff, h.Semesters.Update)...)

	classes := api.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", route(staff, h.Classes.Create)...)
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", route(staff, h.Classes.Update)...)
	classes.POST("/:id/grades/finalize", route(graders, h.Grades.Finalize)...)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", route(anyUser, h.Enrollments.List)...)
	enrollments.POST("", route(anyUser, h.Enrollments.Enroll)...)
	enrollments.GET("/check-capacity/:classId", h.Enrollments.CheckCapacity)
	enrollments.POST("/check-prerequisites", route(anyUser, h.Enrollments.CheckPrerequisites)...)
	enrollments.GET("/:id", route(anyUser, h.Enrollments.Get)...)
	enrollments.GET("/:id/check-cancellation", route(anyUser, h.Enrollments.CheckCancellation)...)
	enrollments.PATCH("/:id/cancel", route(anyUser, h.Enrollments.Cancel)...)
	enrollments.PUT("/:id/grade", route(graders, h.Grades.Record)...)

	return r
}
