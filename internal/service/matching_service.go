package service

import (
	"fmt"
	"log"
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	"github.com/anubis-chat/identity-graph/internal/service/matching"
)

// AnalyzeResult is the outcome of one matching run: ranked candidates and
// how many of them were persisted as pending auto links.
type AnalyzeResult struct {
	Profile    *entity.PlatformProfile `json:"profile"`
	Identity   *entity.Identity        `json:"identity"`
	Candidates []MatchCandidate        `json:"candidates"`
	AutoLinked int                     `json:"auto_linked"`
}

// MatchCandidate is one ranked cross-platform match.
type MatchCandidate struct {
	Profile    *entity.PlatformProfile `json:"profile"`
	Confidence float64                 `json:"confidence"`
	LinkType   string                  `json:"link_type"`
	Evidence   entity.JSONMap          `json:"evidence"`
	Persisted  bool                    `json:"persisted"`
}

// MatchingService computes probabilistic cross-platform matches for a
// profile from three independent signals and proposes pending links for
// high-confidence candidates. It never confirms a link: automatic
// detection only proposes; merging histories requires verification or an
// explicit reviewer merge.
type MatchingService struct {
	graph       *GraphService
	profileRepo repository.ProfileRepository
	factorRepo  repository.FactorRepository
	roomRepo    repository.RoomRepository
	cacheRepo   repository.CacheRepository
	cfg         *matching.Config
}

// NewMatchingService creates the matching engine.
func NewMatchingService(
	graph *GraphService,
	profileRepo repository.ProfileRepository,
	factorRepo repository.FactorRepository,
	roomRepo repository.RoomRepository,
	cacheRepo repository.CacheRepository,
	cfg *matching.Config,
) (*MatchingService, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph service is required")
	}
	if profileRepo == nil || factorRepo == nil || roomRepo == nil {
		return nil, fmt.Errorf("profile, factor and room repositories are required")
	}
	if cfg == nil {
		cfg = matching.DefaultConfig()
	}
	return &MatchingService{
		graph:       graph,
		profileRepo: profileRepo,
		factorRepo:  factorRepo,
		roomRepo:    roomRepo,
		cacheRepo:   cacheRepo,
		cfg:         cfg,
	}, nil
}

// Analyze runs all signals for the profile, fuses them into a ranked
// candidate list, upserts the touched confidence factors, recomputes the
// identity's aggregate, and persists candidates at or above the auto-link
// threshold as pending links.
func (s *MatchingService) Analyze(platform, platformUserID string) (*AnalyzeResult, error) {
	profile, err := s.profileRepo.GetByPlatformUser(platform, platformUserID)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		lockKey := fmt.Sprintf("match:lock:%d", profile.ID)
		acquired, err := s.cacheRepo.SetNX(lockKey, time.Now().Unix(), 30*time.Second)
		if err != nil {
			log.Printf("[MatchingService.Analyze] lock acquisition failed for profile #%d: %v", profile.ID, err)
		} else if !acquired {
			return nil, fmt.Errorf("%w: profile #%d", ErrAnalysisInProgress, profile.ID)
		} else {
			defer func() {
				if err := s.cacheRepo.Delete(lockKey); err != nil {
					log.Printf("[MatchingService.Analyze] lock release failed for profile #%d: %v", profile.ID, err)
				}
			}()
		}
	}

	identity, err := s.graph.EnsureIdentity(profile)
	if err != nil {
		return nil, err
	}

	signals := make(map[uint][]matching.Signal)
	profiles := make(map[uint]*entity.PlatformProfile)
	record := func(candidate entity.PlatformProfile, signal matching.Signal) {
		c := candidate
		profiles[c.ID] = &c
		signals[c.ID] = append(signals[c.ID], signal)
	}

	if err := s.scanUsernames(profile, record); err != nil {
		return nil, err
	}
	if err := s.scanActivity(profile, record); err != nil {
		return nil, err
	}
	if err := s.scanRooms(profile, record); err != nil {
		return nil, err
	}

	fused := matching.Fuse(signals, profiles, s.cfg)

	if err := s.persistFactors(identity.ID, fused); err != nil {
		return nil, err
	}

	result := &AnalyzeResult{
		Profile:    profile,
		Identity:   identity,
		Candidates: make([]MatchCandidate, 0, len(fused)),
	}
	for i := range fused {
		candidate := &fused[i]
		out := MatchCandidate{
			Profile:    candidate.Profile,
			Confidence: candidate.Confidence,
			LinkType:   candidate.LinkType(),
			Evidence:   candidate.Evidence(),
		}
		if candidate.Confidence >= s.cfg.AutoLinkThreshold {
			_, err := s.graph.RecordLink(profile, candidate.Profile, candidate.LinkType(),
				candidate.Confidence, candidate.Evidence(), entity.LinkStatusPending)
			if err != nil {
				return nil, fmt.Errorf("failed to persist candidate link: %w", err)
			}
			out.Persisted = true
			result.AutoLinked++
		}
		result.Candidates = append(result.Candidates, out)
	}
	return result, nil
}

// scanUsernames applies the username similarity signal against
// trigram-prefiltered candidates on other platforms.
func (s *MatchingService) scanUsernames(profile *entity.PlatformProfile, record func(entity.PlatformProfile, matching.Signal)) error {
	if profile.Username == "" {
		return nil
	}
	candidates, err := s.profileRepo.FindUsernameCandidates(profile.Platform, profile.Username, s.cfg.CandidateLimit)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		score := matching.UsernameSimilarity(profile.Username, candidate.Username)
		if score < s.cfg.UsernameThreshold {
			continue
		}
		record(candidate, matching.Signal{
			Name:  matching.SignalUsername,
			Score: score,
			Evidence: entity.JSONMap{
				"username":           profile.Username,
				"candidate_username": candidate.Username,
				"similarity":         score,
			},
		})
	}
	return nil
}

// scanActivity applies the temporal correlation signal. Profiles with too
// few messages have histograms dominated by noise and are skipped.
func (s *MatchingService) scanActivity(profile *entity.PlatformProfile, record func(entity.PlatformProfile, matching.Signal)) error {
	if profile.MessageCount < s.cfg.MinHistogramMessages {
		return nil
	}
	candidates, err := s.profileRepo.ListActiveOnOtherPlatforms(profile.Platform, s.cfg.CandidateLimit)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		if candidate.MessageCount < s.cfg.MinHistogramMessages {
			continue
		}
		correlation := matching.HistogramCorrelation(profile.ActivityBuckets, candidate.ActivityBuckets)
		score := matching.TemporalScore(correlation, s.cfg)
		if score <= 0 {
			continue
		}
		record(candidate, matching.Signal{
			Name:  matching.SignalTemporal,
			Score: score,
			Evidence: entity.JSONMap{
				"correlation": correlation,
			},
		})
	}
	return nil
}

// scanRooms applies the social overlap signal over shared communities.
func (s *MatchingService) scanRooms(profile *entity.PlatformProfile, record func(entity.PlatformProfile, matching.Signal)) error {
	candidates, shared, err := s.roomRepo.CoParticipants(profile.ID, profile.Platform, s.cfg.CandidateLimit)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		count := shared[candidate.ID]
		score := matching.SocialOverlapScore(count, s.cfg)
		if score <= 0 {
			continue
		}
		record(candidate, matching.Signal{
			Name:  matching.SignalSocial,
			Score: score,
			Evidence: entity.JSONMap{
				"shared_communities": count,
			},
		})
	}
	return nil
}

// persistFactors upserts one confidence factor per signal type touched
// during the run (valued at the strongest observation of that signal) and
// recomputes the identity's aggregate score.
func (s *MatchingService) persistFactors(identityID uint, candidates []matching.Candidate) error {
	type best struct {
		score    float64
		evidence entity.JSONMap
	}
	bestBySignal := make(map[string]best)
	for i := range candidates {
		for _, signal := range candidates[i].Signals {
			current, ok := bestBySignal[signal.Name]
			if !ok || signal.Score > current.score {
				evidence := entity.JSONMap{
					"candidate_profile_id": candidates[i].Profile.ID,
					"platform":             candidates[i].Profile.Platform,
				}
				for k, v := range signal.Evidence {
					evidence[k] = v
				}
				bestBySignal[signal.Name] = best{score: signal.Score, evidence: evidence}
			}
		}
	}
	if len(bestBySignal) == 0 {
		return nil
	}

	for name, observation := range bestBySignal {
		factor := &entity.ConfidenceFactor{
			IdentityID: identityID,
			FactorType: factorTypeFor(name),
			Value:      observation.score,
			Evidence:   observation.evidence,
		}
		if err := s.factorRepo.Upsert(factor); err != nil {
			return err
		}
	}
	if _, err := s.factorRepo.RecomputeAggregate(identityID); err != nil {
		return err
	}
	return nil
}

func factorTypeFor(signal string) string {
	switch signal {
	case matching.SignalTemporal:
		return entity.FactorTemporalCorrelation
	case matching.SignalSocial:
		return entity.FactorSocialOverlap
	default:
		return entity.FactorUsernameSimilarity
	}
}
