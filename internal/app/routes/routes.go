package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yigit/musicschool/internal/app/controllers"
	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/middleware"
	"github.com/yigit/musicschool/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	studentController *controllers.StudentController,
	entitlementController *controllers.EntitlementController,
	catalogController *controllers.CatalogController,
	statusController *controllers.StatusController,
	wsHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	v1.GET("/health", statusController.Health)
	v1.GET("/ping", statusController.Ping)

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth(), authMiddleware.ActiveAccountRequired())
	{
		authenticated.GET("/me", authController.Me)
		authenticated.GET("/catalog/modules", catalogController.Modules)
		authenticated.GET("/videos/:videoId/play", catalogController.Play)

		// Browsers cannot set headers on a websocket handshake; JWTAuth also
		// accepts ?token=
		authenticated.GET("/ws/entitlements", wsHandler.HandleConnection)
	}

	// --- Admin Routes Group ---
	admin := authenticated.Group("")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))

	entitlements := admin.Group("/entitlements")
	{
		entitlements.GET("", entitlementController.GetAll)
		entitlements.GET("/drift", entitlementController.Drift)
		entitlements.POST("/drift/repair", entitlementController.Repair)
		entitlements.GET("/:studentId", entitlementController.GetForStudent)
		entitlements.PUT("/:studentId", entitlementController.Replace)
		entitlements.POST("/:studentId/:videoId", entitlementController.Grant)
		entitlements.DELETE("/:studentId/:videoId", entitlementController.Revoke)
	}

	students := admin.Group("/students")
	{
		students.GET("", studentController.List)
		students.POST("", studentController.Create)
		students.GET("/:id", studentController.Get)
		students.PUT("/:id", studentController.Update)
		students.DELETE("/:id", studentController.Delete)
	}

	videos := admin.Group("/videos")
	{
		videos.GET("/links", catalogController.Links)
		videos.PUT("/:videoId/link", catalogController.SetLink)
		videos.DELETE("/:videoId", catalogController.PurgeVideo)
	}

	admin.GET("/status/storage", statusController.Storage)
}
