package router

import (
	"strings"

	"github.com/eventify/internal/handler"
	"github.com/eventify/internal/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds the router level settings.
type Config struct {
	SessionSecret string
	MediaURLPath  string
	SecureCookie  bool
	Logger        *zap.SugaredLogger
}

// SetupRouter configures the Gin engine and its routes.
func SetupRouter(api *handler.API, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger.OrNop(cfg.Logger)))

	secret := cfg.SessionSecret
	if secret == "" {
		secret = "eventify-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
	})
	r.Use(sessions.Sessions("eventify_session", store))

	r.GET("/healthz", api.HealthCheck)
	r.GET("/metrics", api.Metrics)

	mediaPath := "/" + strings.Trim(cfg.MediaURLPath, "/")
	if mediaPath == "/" {
		mediaPath = "/media"
	}
	r.GET(mediaPath+"/o/*object", api.ServeMedia)

	// public site
	public := r.Group("/api")
	{
		public.GET("/gallery", api.PublicGallery)
		public.POST("/contact", api.ContactRateLimit(), api.SubmitContact)

		auth := public.Group("/auth")
		{
			auth.POST("/register", api.Register)
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
			auth.GET("/me", api.AuthRequired(), api.Me)
		}

		dashboard := public.Group("/dashboard/:uid")
		dashboard.Use(api.AuthRequired())
		{
			dashboard.GET("", api.Dashboard)
			dashboard.GET("/events", api.ListEvents)
			dashboard.POST("/events", api.BookEvent)
		}
	}

	// admin area
	admin := r.Group("/admin")
	{
		admin.POST("/unlock", api.Unlock)
		admin.POST("/lock", api.Lock)

		// behind the route password
		adminAPI := admin.Group("/api")
		adminAPI.Use(api.GateRequired())
		{
			media := adminAPI.Group("/media/:category")
			{
				media.GET("", api.ListMedia)
				media.GET("/stream", api.StreamMedia)
				media.POST("/upload", api.UploadMedia)
				media.POST("/reorder", api.ReorderMedia)
				media.POST("/items/:id/toggle", api.ToggleMedia)
				media.PUT("/items/:id/title", api.RenameMedia)
				media.DELETE("/items/:id", api.DeleteMedia)
			}

			adminAPI.POST("/maintenance/reconcile", api.ReconcileMedia)

			adminAPI.GET("/messages", api.ListMessages)
			adminAPI.GET("/messages/stream", api.StreamMessages)
			adminAPI.DELETE("/messages/:id", api.DeleteMessage)
		}
	}

	return r
}
