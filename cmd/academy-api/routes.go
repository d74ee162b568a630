package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/handler"
	"github.com/aeropoint/academy-api/internal/middleware"
	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/repository"
	"github.com/aeropoint/academy-api/internal/service"
	"github.com/aeropoint/academy-api/pkg/config"
	"github.com/aeropoint/academy-api/pkg/logger"
	corsmiddleware "github.com/aeropoint/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aeropoint/academy-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *sqlx.DB
	userRepo       *repository.UserRepository
	metrics        *service.MetricsService
	auth           *service.AuthService
	users          *service.UserService
	students       *service.StudentService
	fees           *service.FeeService
	pools          *service.ExamPoolService
	grades         *service.GradingService
	attendance     *service.AttendanceService
	courses        *service.CourseService
	applications   *service.ApplicationService
	uploads        *service.UploadService
	redisAvailable bool
}

func buildRouter(deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(corsmiddleware.New(deps.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", func(c *gin.Context) {
		if err := deps.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": deps.redisAvailable})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.auth)
	financeHandler := handler.NewFinanceHandler(deps.fees)
	portalHandler := handler.NewStudentPortalHandler(deps.students, deps.fees, deps.pools, deps.grades, deps.attendance, deps.applications)
	publicHandler := handler.NewPublicHandler(deps.fees, deps.applications)
	instructorHandler := handler.NewInstructorHandler(deps.grades, deps.attendance, deps.courses)
	adminHandler := handler.NewAdminHandler(deps.users, deps.students, deps.applications, deps.courses, deps.pools)
	uploadHandler := handler.NewUploadHandler(deps.uploads)

	api := r.Group(deps.cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		if deps.cfg.Env != config.EnvProduction {
			auth.POST("/bypass-login", authHandler.BypassLogin)
		}
		auth.POST("/logout", middleware.JWT(deps.auth), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(deps.auth), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(deps.auth), authHandler.Me)
	}

	public := api.Group("/public")
	{
		public.POST("/payments/proof", publicHandler.SubmitProof)
		public.POST("/enquiries", publicHandler.SubmitEnquiry)
	}

	uploads := api.Group("/uploads")
	{
		uploads.POST("/:endpoint", middleware.OptionalJWT(deps.auth), uploadHandler.Upload)
		uploads.GET("/files/:token", uploadHandler.Download)
	}

	staff := api.Group("/staff", middleware.JWT(deps.auth), middleware.RBAC(string(models.RoleStaff), string(models.RoleAdmin)))
	{
		finance := staff.Group("/finance")
		{
			finance.GET("/fees", financeHandler.ListFees)
			finance.GET("/fees/:id", financeHandler.GetFee)
			finance.POST("/fees", financeHandler.CreateFee)
			finance.POST("/fees/:id/approve", financeHandler.ApproveFee)
			finance.POST("/fees/:id/reject", financeHandler.RejectFee)
			finance.GET("/dashboard", financeHandler.Dashboard)
			finance.GET("/ledger/export", financeHandler.ExportLedger)
		}

		staff.GET("/students", adminHandler.ListStudents)
		staff.GET("/students/:id", adminHandler.GetStudent)
		staff.POST("/students", adminHandler.RegisterStudent)
		staff.POST("/students/:id/cohort",
			middleware.Audit(deps.userRepo, "COHORT_ASSIGN", "student"),
			adminHandler.AssignCohort)

		staff.GET("/admissions", adminHandler.ListApplications)
		staff.POST("/admissions/:id/review",
			middleware.Audit(deps.userRepo, "APPLICATION_REVIEW", "application"),
			adminHandler.ReviewApplication)
		staff.GET("/enquiries", adminHandler.ListEnquiries)
	}

	student := api.Group("/student", middleware.JWT(deps.auth), middleware.RBAC(string(models.RoleStudent)))
	{
		student.GET("/profile", portalHandler.Profile)
		student.PATCH("/profile", portalHandler.UpdateProfile)
		student.GET("/fees", portalHandler.MyFees)
		student.POST("/fees/:id/proof", portalHandler.SubmitProof)
		student.GET("/fees/:id/receipt", portalHandler.Receipt)
		student.GET("/wallet", portalHandler.Wallet)
		student.POST("/wallet/topup", portalHandler.TopUp)
		student.GET("/exam-pools", portalHandler.ListExamPools)
		student.POST("/exam-pools/:id/join", portalHandler.JoinExamPool)
		student.GET("/exam-memberships", portalHandler.MyExamMemberships)
		student.GET("/results", portalHandler.MyResults)
		student.GET("/attendance", portalHandler.MyAttendance)
		student.GET("/applications", portalHandler.MyApplications)
		student.POST("/applications", portalHandler.SubmitApplication)
	}

	instructor := api.Group("/instructor", middleware.JWT(deps.auth), middleware.RBAC(string(models.RoleInstructor), string(models.RoleStaff), string(models.RoleAdmin)))
	{
		instructor.GET("/courses", instructorHandler.ListCourses)
		instructor.POST("/courses/:id/grades", instructorHandler.SubmitGrades)
		instructor.GET("/modules/:module/results", instructorHandler.ModuleResults)
		instructor.POST("/courses/:id/attendance", instructorHandler.RecordAttendance)
		instructor.GET("/courses/:id/attendance", instructorHandler.AttendanceSheet)
	}

	admin := api.Group("/admin", middleware.JWT(deps.auth), middleware.RBAC(string(models.RoleAdmin)))
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.POST("/users", adminHandler.CreateUser)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.GET("/cohorts", adminHandler.ListCohorts)
		admin.POST("/cohorts",
			middleware.Audit(deps.userRepo, "COHORT_CREATE", "cohort"),
			adminHandler.CreateCohort)
		admin.POST("/courses",
			middleware.Audit(deps.userRepo, "COURSE_CREATE", "course"),
			adminHandler.CreateCourse)
		admin.POST("/courses/:id/instructors",
			middleware.Audit(deps.userRepo, "INSTRUCTOR_ASSIGN", "course"),
			adminHandler.AssignInstructor)

		admin.POST("/exam-pools",
			middleware.Audit(deps.userRepo, "EXAM_POOL_CREATE", "exam_pool"),
			adminHandler.CreateExamPool)
		admin.GET("/exam-pools/:id/members", adminHandler.ExamPoolMembers)
	}

	return r
}
