package http

import (
	"net/http"

	"github.com/dkeye/tiger/internal/adapters/signal"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type credentials struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=36"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

func (h *Handlers) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := startSession(c, id); err != nil {
		abortWithError(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("username", id.Username).Msg("user registered")
	c.JSON(http.StatusCreated, id)
}

func (h *Handlers) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, domain.ErrInvalidCredentials)
		return
	}
	id, err := h.Auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := startSession(c, id); err != nil {
		abortWithError(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("username", id.Username).Msg("user logged in")
	c.JSON(http.StatusOK, id)
}

func (h *Handlers) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := s.Save(); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}

func startSession(c *gin.Context, id domain.Identity) error {
	s := sessions.Default(c)
	s.Set(signal.SessionUserIDKey, int64(id.UserID))
	s.Set(signal.SessionUsernameKey, id.Username)
	return s.Save()
}
