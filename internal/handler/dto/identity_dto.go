package dto

import (
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/service"
)

// ProfileResponse is a platform profile in client-facing form.
type ProfileResponse struct {
	ID               uint      `json:"id"`
	IdentityID       *uint     `json:"identity_id,omitempty"`
	Platform         string    `json:"platform"`
	PlatformUserID   string    `json:"platform_user_id"`
	Username         string    `json:"username"`
	DisplayName      string    `json:"display_name"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	PlatformVerified bool      `json:"platform_verified"`
	MessageCount     int64     `json:"message_count"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
}

// IdentityResponse is an identity in client-facing form.
type IdentityResponse struct {
	ID              uint      `json:"id"`
	MasterID        string    `json:"master_id"`
	PrimaryPlatform string    `json:"primary_platform,omitempty"`
	DisplayName     string    `json:"display_name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Verified        bool      `json:"verified"`
	ConfidenceScore float64   `json:"confidence_score"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// LinkResponse is an identity link in client-facing form.
type LinkResponse struct {
	ID              uint           `json:"id"`
	SourceProfileID uint           `json:"source_profile_id"`
	TargetProfileID uint           `json:"target_profile_id"`
	LinkType        string         `json:"link_type"`
	Confidence      float64        `json:"confidence"`
	Evidence        entity.JSONMap `json:"evidence"`
	Status          string         `json:"status"`
	VerifiedBy      *uint          `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time     `json:"verified_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ResolutionResponse answers a resolve request.
type ResolutionResponse struct {
	Profile        *ProfileResponse  `json:"profile"`
	Identity       *IdentityResponse `json:"identity,omitempty"`
	LinkedProfiles []ProfileResponse `json:"linked_profiles"`
	Links          []LinkResponse    `json:"links"`
	Confidence     float64           `json:"confidence"`
}

// SearchGroupResponse is one identity group in a search result.
type SearchGroupResponse struct {
	Identity *IdentityResponse `json:"identity,omitempty"`
	Profiles []ProfileResponse `json:"profiles"`
}

// MatchCandidateResponse is one ranked match from an analysis run.
type MatchCandidateResponse struct {
	Profile    *ProfileResponse `json:"profile"`
	Confidence float64          `json:"confidence"`
	LinkType   string           `json:"link_type"`
	Evidence   entity.JSONMap   `json:"evidence"`
	Persisted  bool             `json:"persisted"`
}

// AnalyzeResponse reports the outcome of a matching run.
type AnalyzeResponse struct {
	Profile    *ProfileResponse         `json:"profile"`
	Identity   *IdentityResponse        `json:"identity"`
	Candidates []MatchCandidateResponse `json:"candidates"`
	AutoLinked int                      `json:"auto_linked"`
}

// NewProfileResponse creates the DTO for a platform profile.
func NewProfileResponse(p *entity.PlatformProfile) *ProfileResponse {
	if p == nil {
		return nil
	}
	return &ProfileResponse{
		ID:               p.ID,
		IdentityID:       p.IdentityID,
		Platform:         p.Platform,
		PlatformUserID:   p.PlatformUserID,
		Username:         p.Username,
		DisplayName:      p.DisplayName,
		AvatarURL:        p.AvatarURL,
		PlatformVerified: p.PlatformVerified,
		MessageCount:     p.MessageCount,
		FirstSeen:        p.FirstSeen,
		LastSeen:         p.LastSeen,
	}
}

// NewIdentityResponse creates the DTO for an identity.
func NewIdentityResponse(i *entity.Identity) *IdentityResponse {
	if i == nil {
		return nil
	}
	return &IdentityResponse{
		ID:              i.ID,
		MasterID:        i.MasterID,
		PrimaryPlatform: i.PrimaryPlatform,
		DisplayName:     i.DisplayName,
		AvatarURL:       i.AvatarURL,
		Verified:        i.Verified,
		ConfidenceScore: i.ConfidenceScore,
		FirstSeen:       i.FirstSeen,
		LastSeen:        i.LastSeen,
	}
}

// NewLinkResponse creates the DTO for an identity link.
func NewLinkResponse(l *entity.IdentityLink) *LinkResponse {
	if l == nil {
		return nil
	}
	return &LinkResponse{
		ID:              l.ID,
		SourceProfileID: l.SourceProfileID,
		TargetProfileID: l.TargetProfileID,
		LinkType:        l.LinkType,
		Confidence:      l.Confidence,
		Evidence:        l.Evidence,
		Status:          l.Status,
		VerifiedBy:      l.VerifiedBy,
		VerifiedAt:      l.VerifiedAt,
		CreatedAt:       l.CreatedAt,
	}
}

// NewProfileListResponse converts a profile slice.
func NewProfileListResponse(profiles []entity.PlatformProfile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, *NewProfileResponse(&profiles[i]))
	}
	return out
}

// NewResolutionResponse creates the DTO for a resolve answer.
func NewResolutionResponse(r *service.Resolution) *ResolutionResponse {
	resp := &ResolutionResponse{
		Profile:        NewProfileResponse(r.Profile),
		Identity:       NewIdentityResponse(r.Identity),
		LinkedProfiles: NewProfileListResponse(r.LinkedProfiles),
		Links:          make([]LinkResponse, 0, len(r.Links)),
		Confidence:     r.Confidence,
	}
	for i := range r.Links {
		resp.Links = append(resp.Links, *NewLinkResponse(&r.Links[i]))
	}
	return resp
}

// NewSearchResponse converts grouped search results.
func NewSearchResponse(groups []service.SearchGroup) []SearchGroupResponse {
	out := make([]SearchGroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, SearchGroupResponse{
			Identity: NewIdentityResponse(groups[i].Identity),
			Profiles: NewProfileListResponse(groups[i].Profiles),
		})
	}
	return out
}

// NewAnalyzeResponse creates the DTO for a matching run.
func NewAnalyzeResponse(r *service.AnalyzeResult) *AnalyzeResponse {
	resp := &AnalyzeResponse{
		Profile:    NewProfileResponse(r.Profile),
		Identity:   NewIdentityResponse(r.Identity),
		Candidates: make([]MatchCandidateResponse, 0, len(r.Candidates)),
		AutoLinked: r.AutoLinked,
	}
	for _, cand := range r.Candidates {
		resp.Candidates = append(resp.Candidates, MatchCandidateResponse{
			Profile:    NewProfileResponse(cand.Profile),
			Confidence: cand.Confidence,
			LinkType:   cand.LinkType,
			Evidence:   cand.Evidence,
			Persisted:  cand.Persisted,
		})
	}
	return resp
}
