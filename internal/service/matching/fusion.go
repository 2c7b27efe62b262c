package matching

import (
	"sort"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// Signal names. They double as confidence factor qualifiers and auto link
// type suffixes.
const (
	SignalUsername = "username"
	SignalTemporal = "temporal"
	SignalSocial   = "social"
)

// Signal is one independent same-person observation about a candidate.
type Signal struct {
	Name     string
	Score    float64 // 0-100
	Evidence entity.JSONMap
}

// Candidate is a fused cross-platform match with its contributing signals.
type Candidate struct {
	Profile    *entity.PlatformProfile
	Confidence float64 // 0-100
	Signals    []Signal
}

// PrimarySignal returns the strongest contributing signal.
func (c *Candidate) PrimarySignal() Signal {
	best := c.Signals[0]
	for _, s := range c.Signals[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}

// LinkType maps the candidate's primary signal to its auto link type.
func (c *Candidate) LinkType() string {
	switch c.PrimarySignal().Name {
	case SignalTemporal:
		return entity.LinkTypeAutoTemporal
	case SignalSocial:
		return entity.LinkTypeAutoSocial
	default:
		return entity.LinkTypeAutoUsername
	}
}

// Evidence flattens the contributing signals into one structured payload.
func (c *Candidate) Evidence() entity.JSONMap {
	signals := make(map[string]interface{}, len(c.Signals))
	for _, s := range c.Signals {
		signals[s.Name] = map[string]interface{}{
			"score":    s.Score,
			"evidence": s.Evidence,
		}
	}
	return entity.JSONMap{
		"signals":    signals,
		"confidence": c.Confidence,
	}
}

// Fuse merges per-signal observations into one ranked candidate list.
// Signals are not summed: the strongest signal sets the base confidence and
// each corroborating signal adds its configured bonus, capped at 100.
func Fuse(signals map[uint][]Signal, profiles map[uint]*entity.PlatformProfile, cfg *Config) []Candidate {
	candidates := make([]Candidate, 0, len(signals))
	for profileID, observed := range signals {
		profile, ok := profiles[profileID]
		if !ok || len(observed) == 0 {
			continue
		}

		// The strongest signal sets the base; every other signal
		// corroborates with its bonus.
		primary := 0
		for i, s := range observed {
			if s.Score > observed[primary].Score {
				primary = i
			}
		}
		confidence := observed[primary].Score
		for i, s := range observed {
			if i == primary {
				continue
			}
			confidence += bonusFor(s.Name, cfg)
		}
		if confidence > 100 {
			confidence = 100
		}

		candidates = append(candidates, Candidate{
			Profile:    profile,
			Confidence: confidence,
			Signals:    observed,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Profile.ID < candidates[j].Profile.ID
	})
	return candidates
}

func bonusFor(signal string, cfg *Config) float64 {
	switch signal {
	case SignalUsername:
		return cfg.UsernameBonus
	case SignalTemporal:
		return cfg.TemporalBonus
	case SignalSocial:
		return cfg.SocialBonus
	default:
		return 0
	}
}
