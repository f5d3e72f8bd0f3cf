package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"followgraph-service/middleware"
	"followgraph-service/service"
	"followgraph-service/validate"
)

// FollowHandler exposes the follow graph over HTTP. Every response uses
// the same envelope shape (success flag, data payload, error message).
// Expected failures never escape as anything else.
type FollowHandler struct {
	svc  service.FollowGraphService
	auth *middleware.AuthMiddleware
}

func NewFollowHandler(svc service.FollowGraphService, auth *middleware.AuthMiddleware) *FollowHandler {
	return &FollowHandler{svc: svc, auth: auth}
}

// RegisterRoutes registers all routes onto the gin engine. Mutations
// require auth; reads are public.
func (h *FollowHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	users := api.Group("/users")

	users.POST("/:user_id/follow", h.auth.RequireAuth(), h.Follow)
	users.DELETE("/:user_id/follow", h.auth.RequireAuth(), h.Unfollow)
	users.POST("/:user_id/follow/toggle", h.auth.RequireAuth(), h.Toggle)

	users.GET("/:user_id/followers/count", h.GetFollowersCount)
	users.GET("/:user_id/following/count", h.GetFollowingCount)
	users.GET("/:user_id/followers", h.GetFollowers)
	users.GET("/:user_id/following", h.GetFollowing)
	users.GET("/:user_id/following/:target_id", h.IsFollowing)
	users.POST("/:user_id/following/status", h.BatchCheckFollowStatus)
}

// Follow handles POST /api/v1/users/:user_id/follow. The authenticated
// user follows the target.
func (h *FollowHandler) Follow(c *gin.Context) {
	followerID := middleware.GetUserID(c)
	if followerID == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	edge, err := h.svc.FollowUser(c.Request.Context(), followerID, c.Param("user_id"))
	if err != nil {
		h.respondServiceError(c, err, "follow user")
		return
	}

	respond(c, http.StatusCreated, edge)
}

// Unfollow handles DELETE /api/v1/users/:user_id/follow
func (h *FollowHandler) Unfollow(c *gin.Context) {
	followerID := middleware.GetUserID(c)
	if followerID == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.UnfollowUser(c.Request.Context(), followerID, c.Param("user_id")); err != nil {
		h.respondServiceError(c, err, "unfollow user")
		return
	}

	respond(c, http.StatusOK, nil)
}

// Toggle handles POST /api/v1/users/:user_id/follow/toggle and returns
// the resulting follow state.
func (h *FollowHandler) Toggle(c *gin.Context) {
	followerID := middleware.GetUserID(c)
	if followerID == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	nowFollowing, err := h.svc.ToggleFollow(c.Request.Context(), followerID, c.Param("user_id"))
	if err != nil {
		h.respondServiceError(c, err, "toggle follow")
		return
	}

	respond(c, http.StatusOK, gin.H{"is_following": nowFollowing})
}

// IsFollowing handles GET /api/v1/users/:user_id/following/:target_id
func (h *FollowHandler) IsFollowing(c *gin.Context) {
	following, err := h.svc.IsFollowing(c.Request.Context(), c.Param("user_id"), c.Param("target_id"))
	if err != nil {
		h.respondServiceError(c, err, "check follow status")
		return
	}

	respond(c, http.StatusOK, gin.H{"is_following": following})
}

// GetFollowersCount handles GET /api/v1/users/:user_id/followers/count
func (h *FollowHandler) GetFollowersCount(c *gin.Context) {
	count, err := h.svc.GetFollowersCount(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.respondServiceError(c, err, "get followers count")
		return
	}

	respond(c, http.StatusOK, gin.H{"count": count})
}

// GetFollowingCount handles GET /api/v1/users/:user_id/following/count
func (h *FollowHandler) GetFollowingCount(c *gin.Context) {
	count, err := h.svc.GetFollowingCount(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.respondServiceError(c, err, "get following count")
		return
	}

	respond(c, http.StatusOK, gin.H{"count": count})
}

// GetFollowers handles GET /api/v1/users/:user_id/followers
func (h *FollowHandler) GetFollowers(c *gin.Context) {
	limit, offset := pageParams(c)
	entries, err := h.svc.GetFollowers(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		h.respondServiceError(c, err, "get followers")
		return
	}

	respond(c, http.StatusOK, gin.H{"entries": entries})
}

// GetFollowing handles GET /api/v1/users/:user_id/following
func (h *FollowHandler) GetFollowing(c *gin.Context) {
	limit, offset := pageParams(c)
	entries, err := h.svc.GetFollowing(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		h.respondServiceError(c, err, "get following")
		return
	}

	respond(c, http.StatusOK, gin.H{"entries": entries})
}

type batchCheckRequest struct {
	TargetIDs []string `json:"target_ids" binding:"required"`
}

// BatchCheckFollowStatus handles POST /api/v1/users/:user_id/following/status
func (h *FollowHandler) BatchCheckFollowStatus(c *gin.Context) {
	var req batchCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.svc.BatchCheckFollowStatus(c.Request.Context(), c.Param("user_id"), req.TargetIDs)
	if err != nil {
		h.respondServiceError(c, err, "check follow statuses")
		return
	}

	respond(c, http.StatusOK, gin.H{"results": results})
}

func pageParams(c *gin.Context) (int32, int32) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 32)
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 32)
	if err != nil || offset < 0 {
		offset = 0
	}
	return int32(limit), int32(offset)
}

func (h *FollowHandler) respondServiceError(c *gin.Context, err error, action string) {
	var invalid *validate.InvalidIdentifierError
	switch {
	case errors.As(err, &invalid):
		respondError(c, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, service.ErrSelfFollow):
		respondError(c, http.StatusBadRequest, "users cannot follow themselves")
	case errors.Is(err, service.ErrAlreadyFollowing):
		respondError(c, http.StatusConflict, "already following this user")
	default:
		log.Printf("failed to %s: %v", action, err)
		respondError(c, http.StatusInternalServerError, "failed to "+action)
	}
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}
