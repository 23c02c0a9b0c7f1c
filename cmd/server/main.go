package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/taskflow/taskflow-api/internal/config"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/handlers"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"github.com/taskflow/taskflow-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()
	r.Use(middleware.RequestID())

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	activityService := services.NewActivityService(activityRepo)
	authService := services.NewAuthService(userRepo)
	projectService := services.NewProjectService(projectRepo, userRepo, activityService)
	taskService := services.NewTaskService(taskRepo, projectRepo, activityService)
	commentService := services.NewCommentService(commentRepo)
	labelService := services.NewLabelService(labelRepo, activityService)

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService, activityService)
	taskHandler := handlers.NewTaskHandler(taskService, projectService, aiService)
	commentHandler := handlers.NewCommentHandler(commentService)
	labelHandler := handlers.NewLabelHandler(labelService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "TaskFlow API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", middleware.RequireProjectRole(projectService, models.RoleViewer), projectHandler.GetProject)
			projects.PATCH("/:id", middleware.RequireProjectRole(projectService, models.RoleOwner), projectHandler.UpdateProject)
			projects.DELETE("/:id", middleware.RequireProjectRole(projectService, models.RoleOwner), projectHandler.DeleteProject)

			projects.GET("/:id/members", middleware.RequireProjectRole(projectService, models.RoleViewer), projectHandler.ListMembers)
			projects.PUT("/:id/members", middleware.RequireProjectRole(projectService, models.RoleOwner), projectHandler.GrantMember)
			projects.DELETE("/:id/members/:user_id", middleware.RequireProjectRole(projectService, models.RoleOwner), projectHandler.RevokeMember)

			projects.GET("/:id/tasks", middleware.RequireProjectRole(projectService, models.RoleViewer), taskHandler.ListTasks)
			projects.POST("/:id/tasks", middleware.RequireProjectRole(projectService, models.RoleMember), taskHandler.CreateTask)

			projects.GET("/:id/labels", middleware.RequireProjectRole(projectService, models.RoleViewer), labelHandler.ListLabels)
			projects.POST("/:id/labels", middleware.RequireProjectRole(projectService, models.RoleMember), labelHandler.CreateLabel)
			projects.PATCH("/:id/labels/:label_id", middleware.RequireProjectRole(projectService, models.RoleMember), labelHandler.UpdateLabel)
			projects.DELETE("/:id/labels/:label_id", middleware.RequireProjectRole(projectService, models.RoleMember), labelHandler.DeleteLabel)

			projects.GET("/:id/priority-summary", middleware.RequireProjectRole(projectService, models.RoleViewer), taskHandler.ProjectSummary)

			projects.GET("/:id/activity", middleware.RequireProjectRole(projectService, models.RoleViewer), projectHandler.ListActivity)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.POST("/suggest", taskHandler.SuggestTasks)
			tasks.GET("/:id", middleware.RequireTaskRole(taskService, projectService, models.RoleViewer), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskRole(taskService, projectService, models.RoleMember), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskRole(taskService, projectService, models.RoleMember), taskHandler.DeleteTask)
			tasks.POST("/:id/reorder", middleware.RequireTaskRole(taskService, projectService, models.RoleMember), taskHandler.ReorderTask)
			tasks.GET("/:id/comments", middleware.RequireTaskRole(taskService, projectService, models.RoleViewer), commentHandler.ListComments)
			tasks.POST("/:id/comments", middleware.RequireTaskRole(taskService, projectService, models.RoleMember), commentHandler.AddComment)
			tasks.POST("/:id/labels", middleware.RequireTaskRole(taskService, projectService, models.RoleMember), labelHandler.AttachLabel)
			tasks.DELETE("/:id/labels/:label_id", middleware.RequireTaskRole(taskService, projectService, models.RoleMember), labelHandler.DetachLabel)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth())
		{
			comments.DELETE("/:id", commentHandler.DeleteComment)
		}
	}

	// CORS wraps the whole engine so preflight requests short-circuit
	// before gin routing.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", constants.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(r)

	// Start server
	log.Println("Server starting on :8080")
	if err := http.ListenAndServe(":8080", corsHandler); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
