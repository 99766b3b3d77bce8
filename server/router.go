package server

import (
	"time"

	httpHandler "blog-publisher/interfaces/http"
	"blog-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Post       httpHandler.IPostHandler
	Connection httpHandler.IConnectionHandler
	Sweep      httpHandler.ISweepHandler
	Health     httpHandler.IHealthHandler
	// Stream serves publish events as server-sent events; optional.
	Stream gin.HandlerFunc
}

func InitiateRouter(h Handlers, secretKey string, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(origins)))

	auth := middleware.Auth(secretKey)
	api := router.Group("api")
	api.Use(auth)

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/auth/blogger", auth, h.Connection.BloggerAuthURL)
	router.GET("/auth/blogger/callback", h.Connection.BloggerCallback)

	posts := api.Group("/posts")
	{
		posts.POST("", h.Post.Create)
		posts.GET("/:postId", h.Post.Get)
		posts.GET("/:postId/history", h.Post.History)
		posts.POST("/:postId/publish", h.Post.Publish)
		posts.POST("/:postId/retry", h.Post.Retry)
		posts.PUT("/:postId/remote", h.Post.UpdateRemote)
	}

	connections := api.Group("/connections")
	{
		connections.GET("", h.Connection.List)
		connections.POST("/wordpress", h.Connection.ConnectWordPress)
		connections.POST("/tistory", h.Connection.ConnectTistory)
		connections.DELETE("/:connectionId", h.Connection.Disconnect)
	}

	api.POST("/sweep/run", h.Sweep.Run)
	if h.Stream != nil {
		api.GET("/publish/stream", h.Stream)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:4200", "http://localhost:4201"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
