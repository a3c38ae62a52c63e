package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/tiger/internal/adapters/signal"
	"github.com/dkeye/tiger/internal/app/orch"
	"github.com/dkeye/tiger/internal/config"
	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionName = "TigerSessions"
	identityKey = "identity"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Cfg    *config.Config
	Orch   *orch.Orchestrator
	Auth   core.Authenticator
	Health Pinger
}

func SetupRouter(ctx context.Context, h *Handlers) *gin.Engine {
	cfg := h.Cfg
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.GET("/health", h.health)
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)
	api.GET("/rtc/config", h.rtcConfig)
	api.GET("/stats", h.stats)

	authed := api.Group("", requireIdentity())
	authed.GET("/me", h.me)
	authed.GET("/rooms", h.listRooms)
	authed.POST("/rooms", h.createRoom)
	authed.DELETE("/rooms/:id", h.deleteRoom)
	authed.POST("/rooms/:id/members", h.addMember)
	authed.DELETE("/rooms/:id/members/:username", h.removeMember)

	ctrl := signal.NewSignalWSController(h.Orch, cfg)
	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := signal.IdentityFrom(c)
		if id == nil {
			abortWithError(c, domain.ErrUnauthenticated)
			return
		}
		c.Set(identityKey, *id)
		c.Next()
	}
}

func currentIdentity(c *gin.Context) domain.Identity {
	return c.MustGet(identityKey).(domain.Identity)
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccessDenied), errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrBadPayload), errors.Is(err, domain.ErrNotGroup),
		errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *Handlers) health(c *gin.Context) {
	if err := h.Health.Ping(c.Request.Context()); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) rtcConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.Cfg.WebRTC()})
}

func (h *Handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.Orch.Registry.Count(),
		"online":   h.Orch.Registry.ListOnline(),
		"rooms":    h.Orch.Rooms.List(),
	})
}
