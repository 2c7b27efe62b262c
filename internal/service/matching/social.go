package matching

// SocialOverlapScore converts a shared community count into confidence.
// Fewer than the configured minimum contributes nothing; above it, each
// shared community adds the per-room weight up to the cap.
func SocialOverlapScore(shared int64, cfg *Config) float64 {
	if shared < cfg.SocialMinShared {
		return 0
	}
	score := float64(shared) * cfg.SocialPerRoomWeight
	if score > cfg.SocialCap {
		return cfg.SocialCap
	}
	return score
}
