package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type createRoomRequest struct {
	Type      string   `json:"type" binding:"required,oneof=private group"`
	Recipient string   `json:"recipient" binding:"required_if=Type private,max=36"`
	Name      string   `json:"name" binding:"required_if=Type group,max=128"`
	Members   []string `json:"members" binding:"dive,alphanum,max=36"`
}

type addMemberRequest struct {
	Username string `json:"username" binding:"required,alphanum,max=36"`
}

func (h *Handlers) listRooms(c *gin.Context) {
	id := currentIdentity(c)
	c.JSON(http.StatusOK, gin.H{"rooms": h.Orch.Index.RoomsOf(id.UserID)})
}

func (h *Handlers) createRoom(c *gin.Context) {
	id := currentIdentity(c)
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	var (
		room domain.Room
		err  error
	)
	switch req.Type {
	case "private":
		var peer domain.User
		if peer, err = h.Auth.UserByName(ctx, req.Recipient); err != nil {
			abortWithError(c, err)
			return
		}
		room, err = h.Orch.Index.CreatePrivate(ctx, id, peer.Identity())
	default:
		members := make([]domain.UserID, 0, len(req.Members))
		for _, name := range req.Members {
			u, err := h.Auth.UserByName(ctx, name)
			if err != nil {
				abortWithError(c, err)
				return
			}
			members = append(members, u.ID)
		}
		room, err = h.Orch.Index.CreateGroup(ctx, domain.RoomName(req.Name), id.UserID, members)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room, "members": h.Orch.Index.Members(room.ID)})
}

func (h *Handlers) deleteRoom(c *gin.Context) {
	id := currentIdentity(c)
	roomID, err := roomParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	room, err := h.Orch.Index.Delete(c.Request.Context(), roomID, id.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.Orch.EvictRoom(room.Name)
	c.Status(http.StatusNoContent)
}

func (h *Handlers) addMember(c *gin.Context) {
	id := currentIdentity(c)
	roomID, err := roomParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room, ok := h.Orch.Index.Get(roomID)
	if !ok {
		abortWithError(c, domain.ErrNotFound)
		return
	}
	if !room.IsGroup {
		abortWithError(c, domain.ErrNotGroup)
		return
	}
	if room.CreatorID != id.UserID {
		abortWithError(c, domain.ErrForbidden)
		return
	}
	u, err := h.Auth.UserByName(c.Request.Context(), req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.Orch.Index.AddMember(c.Request.Context(), roomID, u.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// removeMember lets the group creator remove anyone, and anyone remove
// themselves. The removed user's sessions also leave the live audience.
func (h *Handlers) removeMember(c *gin.Context) {
	id := currentIdentity(c)
	roomID, err := roomParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	room, ok := h.Orch.Index.Get(roomID)
	if !ok {
		abortWithError(c, domain.ErrNotFound)
		return
	}
	u, err := h.Auth.UserByName(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if u.ID != id.UserID && !(room.IsGroup && room.CreatorID == id.UserID) {
		abortWithError(c, domain.ErrForbidden)
		return
	}
	if err := h.Orch.Index.RemoveMember(c.Request.Context(), roomID, u.ID); err != nil {
		abortWithError(c, err)
		return
	}
	h.Orch.EvictMember(room.Name, u.ID)
	log.Info().Str("module", "adapters.http").Str("room", string(room.Name)).Str("username", u.Username).Str("by", id.Username).Msg("member removed")
	c.Status(http.StatusNoContent)
}

func roomParam(c *gin.Context) (domain.RoomID, error) {
	n, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: room id %q", domain.ErrBadPayload, c.Param("id"))
	}
	return domain.RoomID(n), nil
}
