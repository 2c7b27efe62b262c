package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// codeAlphabet deliberately omits easily confused characters (0/O, 1/I)
// since a human relays the code across platforms by hand.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// LinkRequestInfo is returned to the requester: the clear code exists only
// here, never in storage.
type LinkRequestInfo struct {
	RequestID   uint      `json:"request_id"`
	Code        string    `json:"code"`
	Instruction string    `json:"instruction"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// VerifyResult reports a successful verification.
type VerifyResult struct {
	IdentityID    uint                     `json:"identity_id"`
	MasterID      string                   `json:"master_id"`
	TargetProfile *entity.PlatformProfile  `json:"target_profile"`
	Link          *entity.IdentityLink     `json:"link"`
	Linked        []entity.PlatformProfile `json:"linked_profiles"`
}

// VerificationService implements the cross-platform link verification
// workflow: requestLink issues a short-lived single-use code, verifyCode
// proves control of the target account and applies the confirmed link.
type VerificationService struct {
	graph       *GraphService
	profileRepo repository.ProfileRepository
	requestRepo repository.LinkRequestRepository
	graphTx     repository.GraphTxRepository
	codeTTL     time.Duration
	codeLength  int
	codePepper  string
}

// NewVerificationService creates the verification workflow.
func NewVerificationService(
	graph *GraphService,
	profileRepo repository.ProfileRepository,
	requestRepo repository.LinkRequestRepository,
	graphTx repository.GraphTxRepository,
	codeTTL time.Duration,
	codeLength int,
	codePepper string,
) (*VerificationService, error) {
	if graph == nil || profileRepo == nil || requestRepo == nil || graphTx == nil {
		return nil, fmt.Errorf("graph service and repositories are required")
	}
	if codeTTL <= 0 {
		codeTTL = 15 * time.Minute
	}
	if codeLength < 6 {
		codeLength = 6
	}
	return &VerificationService{
		graph:       graph,
		profileRepo: profileRepo,
		requestRepo: requestRepo,
		graphTx:     graphTx,
		codeTTL:     codeTTL,
		codeLength:  codeLength,
		codePepper:  codePepper,
	}, nil
}

// RequestLink starts a verification attempt from the requester's profile
// toward an account on another platform. The requester gets a code to
// relay from the target account; an identity is created for the requester
// first if absent, so the request always has one to attach to.
func (s *VerificationService) RequestLink(platform, platformUserID, targetPlatform, targetIdentifier string) (*LinkRequestInfo, error) {
	targetPlatform = strings.ToLower(strings.TrimSpace(targetPlatform))
	targetIdentifier = strings.TrimSpace(targetIdentifier)
	if targetPlatform == "" || targetIdentifier == "" {
		return nil, fmt.Errorf("%w: target platform and identifier are required", apperrors.ErrValidation)
	}
	if strings.EqualFold(platform, targetPlatform) {
		return nil, fmt.Errorf("%w: target platform must differ from the requesting platform", apperrors.ErrValidation)
	}

	profile, err := s.profileRepo.GetByPlatformUser(platform, platformUserID)
	if err != nil {
		return nil, err
	}
	identity, err := s.graph.EnsureIdentity(profile)
	if err != nil {
		return nil, err
	}

	// A hash collision on (platform, code) is astronomically unlikely but
	// cheap to retry.
	var request *entity.LinkRequest
	var code string
	for attempt := 0; attempt < 3; attempt++ {
		code, err = generateLinkCode(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate verification code: %w", err)
		}
		request = &entity.LinkRequest{
			RequesterProfileID: profile.ID,
			IdentityID:         identity.ID,
			TargetPlatform:     targetPlatform,
			TargetIdentifier:   targetIdentifier,
			CodeHash:           hashLinkCode(code, s.codePepper),
			Status:             entity.LinkRequestStatusPending,
			ExpiresAt:          time.Now().Add(s.codeTTL),
		}
		err = s.requestRepo.Create(request)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("failed to create link request: %w", err)
		}
		log.Printf("[VerificationService.RequestLink] code collision on %s, regenerating", targetPlatform)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create link request: %w", err)
	}

	return &LinkRequestInfo{
		RequestID: request.ID,
		Code:      code,
		Instruction: fmt.Sprintf("Send the code %s from your %s account (%s) within %d minutes to link it.",
			code, targetPlatform, targetIdentifier, int(s.codeTTL.Minutes())),
		ExpiresAt: request.ExpiresAt,
	}, nil
}

// VerifyCode consumes a code submitted from the target platform. Exactly
// one call wins for a given code even under concurrent invocation; losers
// observe the post-state (already verified, or expired).
func (s *VerificationService) VerifyCode(targetPlatform, targetPlatformUserID, code string, attrs ProfileAttrs) (*VerifyResult, error) {
	targetPlatform = strings.ToLower(strings.TrimSpace(targetPlatform))
	code = strings.ToUpper(strings.TrimSpace(code))
	if targetPlatform == "" || targetPlatformUserID == "" || code == "" {
		return nil, fmt.Errorf("%w: platform, user id and code are required", apperrors.ErrValidation)
	}

	request, err := s.requestRepo.GetByPlatformCode(targetPlatform, hashLinkCode(code, s.codePepper))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	now := time.Now()
	switch request.Status {
	case entity.LinkRequestStatusExpired:
		return nil, s.expiredError(request)
	case entity.LinkRequestStatusVerified, entity.LinkRequestStatusRejected:
		return nil, fmt.Errorf("%w: link request already %s", apperrors.ErrConflict, request.Status)
	}
	if request.IsExpired(now) {
		// Lazy expiry: the first observer past the deadline performs the
		// transition. Losing the race here is fine, the outcome is the same.
		if _, err := s.requestRepo.MarkExpired(request.ID); err != nil {
			log.Printf("[VerificationService.VerifyCode] failed to expire request #%d: %v", request.ID, err)
		}
		return nil, s.expiredError(request)
	}

	target := &entity.PlatformProfile{
		Platform:         targetPlatform,
		PlatformUserID:   strings.TrimSpace(targetPlatformUserID),
		Username:         strings.TrimSpace(attrs.Username),
		DisplayName:      strings.TrimSpace(attrs.DisplayName),
		AvatarURL:        attrs.AvatarURL,
		Bio:              attrs.Bio,
		PlatformVerified: attrs.PlatformVerified,
		RawPayload:       attrs.RawPayload,
	}
	audit := &entity.AuditLogEntry{
		Action: entity.AuditActionLinkCreated,
		Details: entity.JSONMap{
			"method":           "verification_code",
			"link_request_id":  request.ID,
			"target_platform":  targetPlatform,
			"requester_profile": request.RequesterProfileID,
		},
	}

	confirmed, err := s.graphTx.ConfirmVerification(repository.ConfirmVerificationParams{
		RequestID:     request.ID,
		Now:           now,
		TargetProfile: target,
		Audit:         audit,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrExpired) {
			// The deadline passed between our check and the claim.
			if _, markErr := s.requestRepo.MarkExpired(request.ID); markErr != nil {
				log.Printf("[VerificationService.VerifyCode] failed to expire request #%d: %v", request.ID, markErr)
			}
		}
		return nil, err
	}

	s.graph.InvalidateResolve(targetPlatform, confirmed.Target.PlatformUserID)
	if requester, err := s.profileRepo.GetByID(request.RequesterProfileID); err == nil {
		s.graph.InvalidateResolve(requester.Platform, requester.PlatformUserID)
	}

	linked, err := s.profileRepo.GetByIdentityID(confirmed.Request.IdentityID)
	if err != nil {
		return nil, err
	}
	identity, err := s.graph.identityRepo.GetByID(confirmed.Request.IdentityID)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		IdentityID:    identity.ID,
		MasterID:      identity.MasterID,
		TargetProfile: confirmed.Target,
		Link:          confirmed.Link,
		Linked:        linked,
	}, nil
}

// ExpireOverdue bulk-expires pending requests past their deadline. Purely
// a storage reclamation aid; verification is correct without it.
func (s *VerificationService) ExpireOverdue() (int64, error) {
	return s.requestRepo.ExpireOverdue(time.Now())
}

func (s *VerificationService) expiredError(request *entity.LinkRequest) error {
	return fmt.Errorf("%w: link request to %s created %s",
		apperrors.ErrExpired, request.TargetPlatform, request.CreatedAt.Format(time.RFC3339))
}

// generateLinkCode draws an unguessable code from crypto/rand.
func generateLinkCode(length int) (string, error) {
	alphabet := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// hashLinkCode hashes a code deterministically with the service pepper so
// verification can look the request up by hash while the clear code never
// reaches storage.
func hashLinkCode(code, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + strings.ToUpper(code)))
	return hex.EncodeToString(sum[:])
}
