package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/handler/dto"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
	"github.com/anubis-chat/identity-graph/internal/service"
)

// IdentityHandler serves the platform-facing graph endpoints: profile
// observations, resolution, matching runs, search, unlink and room
// presence.
type IdentityHandler struct {
	graphService    *service.GraphService
	matchingService *service.MatchingService
	mergeService    *service.MergeService
}

// NewIdentityHandler creates the identity handler.
func NewIdentityHandler(
	graphService *service.GraphService,
	matchingService *service.MatchingService,
	mergeService *service.MergeService,
) *IdentityHandler {
	return &IdentityHandler{
		graphService:    graphService,
		matchingService: matchingService,
		mergeService:    mergeService,
	}
}

// UpsertProfileRequest is an observation of a platform user.
type UpsertProfileRequest struct {
	Platform         string         `json:"platform" binding:"required,min=2,max=32"`
	PlatformUserID   string         `json:"platform_user_id" binding:"required,max=128"`
	Username         string         `json:"username" binding:"omitempty,max=100"`
	DisplayName      string         `json:"display_name" binding:"omitempty,max=100"`
	AvatarURL        string         `json:"avatar_url" binding:"omitempty,max=255"`
	Bio              string         `json:"bio" binding:"omitempty,max=500"`
	PlatformVerified bool           `json:"platform_verified"`
	RawPayload       entity.JSONMap `json:"raw_payload"`
}

// UpsertProfile records a sighting of a platform user.
func (h *IdentityHandler) UpsertProfile(c *gin.Context) {
	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.graphService.UpsertProfile(req.Platform, req.PlatformUserID, service.ProfileAttrs{
		Username:         req.Username,
		DisplayName:      req.DisplayName,
		AvatarURL:        req.AvatarURL,
		Bio:              req.Bio,
		PlatformVerified: req.PlatformVerified,
		RawPayload:       req.RawPayload,
	})
	if err != nil {
		h.handleGraphError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProfileResponse(profile))
}

// Resolve answers "who is this platform user" with the profile, its
// identity and every linked profile.
func (h *IdentityHandler) Resolve(c *gin.Context) {
	platform := c.Query("platform")
	platformUserID := c.Query("platform_user_id")
	if platform == "" || platformUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform and platform_user_id query parameters are required"})
		return
	}

	resolution, err := h.graphService.Resolve(platform, platformUserID)
	if err != nil {
		h.handleGraphError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResolutionResponse(resolution))
}

// AnalyzeRequest names the profile to run matching for.
type AnalyzeRequest struct {
	Platform       string `json:"platform" binding:"required"`
	PlatformUserID string `json:"platform_user_id" binding:"required"`
}

// Analyze runs the matching engine for a profile and returns the ranked
// candidates. High-confidence candidates become pending links.
func (h *IdentityHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.matchingService.Analyze(req.Platform, req.PlatformUserID)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisInProgress) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		h.handleGraphError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAnalyzeResponse(result))
}

// Search finds identities and profiles by fuzzy username or display name.
func (h *IdentityHandler) Search(c *gin.Context) {
	term := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	groups, err := h.graphService.Search(term, limit)
	if err != nil {
		h.handleGraphError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": dto.NewSearchResponse(groups)})
}

// UnlinkRequest names the profile to detach, addressed from the
// requester's account.
type UnlinkRequest struct {
	Platform       string `json:"platform" binding:"required"`
	PlatformUserID string `json:"platform_user_id" binding:"required"`
	TargetPlatform string `json:"target_platform" binding:"required"`
}

// Unlink detaches the requester's profile on the target platform into a
// fresh standalone identity.
func (h *IdentityHandler) Unlink(c *gin.Context) {
	var req UnlinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.mergeService.Unlink(req.Platform, req.PlatformUserID, req.TargetPlatform)
	if err != nil {
		if errors.Is(err, service.ErrProfileUnlinked) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.handleGraphError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RoomPresenceRequest records a profile's participation in a room.
type RoomPresenceRequest struct {
	Platform     string `json:"platform" binding:"required"`
	RoomKey      string `json:"room_key" binding:"required,max=128"`
	CommunityKey string `json:"community_key" binding:"omitempty,max=128"`
	ProfileID    uint   `json:"profile_id" binding:"required"`
}

// RecordRoomPresence stores room co-occurrence evidence for the social
// overlap signal.
func (h *IdentityHandler) RecordRoomPresence(c *gin.Context) {
	var req RoomPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.graphService.RecordRoomPresence(req.Platform, req.RoomKey, req.CommunityKey, req.ProfileID); err != nil {
		h.handleGraphError(c, err)
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

func (h *IdentityHandler) handleGraphError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in IdentityHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
