package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/handler/dto"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
	"github.com/anubis-chat/identity-graph/internal/service"
)

// VerificationHandler serves the link verification workflow.
type VerificationHandler struct {
	verificationService *service.VerificationService
}

// NewVerificationHandler creates the verification handler.
func NewVerificationHandler(verificationService *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

// RequestLinkRequest starts a link attempt from one platform account
// toward an account on another platform.
type RequestLinkRequest struct {
	Platform         string `json:"platform" binding:"required"`
	PlatformUserID   string `json:"platform_user_id" binding:"required"`
	TargetPlatform   string `json:"target_platform" binding:"required"`
	TargetIdentifier string `json:"target_identifier" binding:"omitempty,max=128"`
}

// RequestLink issues a short-lived single-use verification code.
func (h *VerificationHandler) RequestLink(c *gin.Context) {
	var req RequestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.verificationService.RequestLink(req.Platform, req.PlatformUserID, req.TargetPlatform, req.TargetIdentifier)
	if err != nil {
		h.handleVerificationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewLinkRequestResponse(info))
}

// VerifyRequest submits a code from the target platform account.
type VerifyRequest struct {
	Platform       string `json:"platform" binding:"required"`
	PlatformUserID string `json:"platform_user_id" binding:"required"`
	Code           string `json:"code" binding:"required,min=4,max=16"`

	// Optional profile attributes observed alongside the code, applied
	// to the target profile during confirmation.
	Username    string         `json:"username" binding:"omitempty,max=100"`
	DisplayName string         `json:"display_name" binding:"omitempty,max=100"`
	AvatarURL   string         `json:"avatar_url" binding:"omitempty,max=255"`
	RawPayload  entity.JSONMap `json:"raw_payload"`
}

// Verify consumes a verification code and confirms the link. Exactly one
// submission of a given code can ever succeed.
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.verificationService.VerifyCode(req.Platform, req.PlatformUserID, req.Code, service.ProfileAttrs{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		RawPayload:  req.RawPayload,
	})
	if err != nil {
		h.handleVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewVerifyResponse(result))
}

func (h *VerificationHandler) handleVerificationError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCode) {
		// Invalid and unknown codes are indistinguishable on purpose.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "invalid_code"})
	} else if errors.Is(err, apperrors.ErrExpired) {
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "error_type": "code_expired"})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in VerificationHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
