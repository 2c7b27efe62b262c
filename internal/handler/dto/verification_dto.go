package dto

import (
	"time"

	"github.com/anubis-chat/identity-graph/internal/service"
)

// LinkRequestResponse returns a freshly issued verification code. This is
// the only place the clear code ever appears.
type LinkRequestResponse struct {
	RequestID   uint      `json:"request_id"`
	Code        string    `json:"code"`
	Instruction string    `json:"instruction"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// VerifyResponse reports a successfully confirmed link.
type VerifyResponse struct {
	IdentityID     uint              `json:"identity_id"`
	MasterID       string            `json:"master_id"`
	TargetProfile  *ProfileResponse  `json:"target_profile"`
	Link           *LinkResponse     `json:"link"`
	LinkedProfiles []ProfileResponse `json:"linked_profiles"`
}

// NewLinkRequestResponse creates the DTO for an issued link request.
func NewLinkRequestResponse(info *service.LinkRequestInfo) *LinkRequestResponse {
	return &LinkRequestResponse{
		RequestID:   info.RequestID,
		Code:        info.Code,
		Instruction: info.Instruction,
		ExpiresAt:   info.ExpiresAt,
	}
}

// NewVerifyResponse creates the DTO for a completed verification.
func NewVerifyResponse(r *service.VerifyResult) *VerifyResponse {
	return &VerifyResponse{
		IdentityID:     r.IdentityID,
		MasterID:       r.MasterID,
		TargetProfile:  NewProfileResponse(r.TargetProfile),
		Link:           NewLinkResponse(r.Link),
		LinkedProfiles: NewProfileListResponse(r.Linked),
	}
}
