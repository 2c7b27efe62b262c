package matching

// Default signal thresholds and fusion bonuses. These are starting points,
// not validated precision/recall tradeoffs; deployments tune them through
// the matching section of the config file.
const (
	DefaultUsernameThreshold    = 70.0
	DefaultTemporalFloor        = 0.7
	DefaultTemporalWeight       = 60.0
	DefaultSocialMinShared      = 3
	DefaultSocialPerRoomWeight  = 10.0
	DefaultSocialCap            = 80.0
	DefaultUsernameBonus        = 15.0
	DefaultTemporalBonus        = 15.0
	DefaultSocialBonus          = 20.0
	DefaultAutoLinkThreshold    = 80.0
	DefaultCandidateLimit       = 50
	DefaultMinHistogramMessages = 20
)

// Config holds the tunables for all matching signals and their fusion.
type Config struct {
	// UsernameThreshold is the minimum username similarity (0-100) for a
	// profile to become a candidate from that signal.
	UsernameThreshold float64

	// TemporalFloor is the minimum activity correlation (0-1) that
	// contributes confidence; TemporalWeight scales the correlation into
	// the 0-100 range.
	TemporalFloor  float64
	TemporalWeight float64

	// SocialMinShared is the minimum number of shared communities before
	// the social signal contributes; each shared community adds
	// SocialPerRoomWeight up to SocialCap.
	SocialMinShared     int64
	SocialPerRoomWeight float64
	SocialCap           float64

	// Corroboration bonuses added when a second or third signal confirms
	// a candidate, capped at 100 overall.
	UsernameBonus float64
	TemporalBonus float64
	SocialBonus   float64

	// AutoLinkThreshold is the confidence at or above which a candidate is
	// persisted as a pending link. Below it, candidates are surfaced only.
	AutoLinkThreshold float64

	// CandidateLimit caps per-signal candidate queries.
	CandidateLimit int

	// MinHistogramMessages is the message count below which a profile's
	// activity histogram is too sparse for the temporal signal.
	MinHistogramMessages int64
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() *Config {
	return &Config{
		UsernameThreshold:    DefaultUsernameThreshold,
		TemporalFloor:        DefaultTemporalFloor,
		TemporalWeight:       DefaultTemporalWeight,
		SocialMinShared:      DefaultSocialMinShared,
		SocialPerRoomWeight:  DefaultSocialPerRoomWeight,
		SocialCap:            DefaultSocialCap,
		UsernameBonus:        DefaultUsernameBonus,
		TemporalBonus:        DefaultTemporalBonus,
		SocialBonus:          DefaultSocialBonus,
		AutoLinkThreshold:    DefaultAutoLinkThreshold,
		CandidateLimit:       DefaultCandidateLimit,
		MinHistogramMessages: DefaultMinHistogramMessages,
	}
}
