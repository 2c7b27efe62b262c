package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

func TestVerificationEvidence_FreshLink(t *testing.T) {
	evidence := verificationEvidence(nil, "telegram")

	assert.Equal(t, entity.JSONMap{
		"method":          "verification_code",
		"target_platform": "telegram",
	}, evidence)
}

func TestVerificationEvidence_KeepsAutoSignalProvenance(t *testing.T) {
	existing := entity.JSONMap{
		"signal":     "username",
		"similarity": 85.0,
	}

	evidence := verificationEvidence(existing, "discord")

	assert.Equal(t, "verification_code", evidence["method"])
	assert.Equal(t, "discord", evidence["target_platform"])
	assert.Equal(t, "username", evidence["signal"])
	assert.Equal(t, 85.0, evidence["similarity"])
	// The stored map is a copy; confirming must not mutate the scan's map.
	assert.NotContains(t, existing, "method")
}

func TestVerificationEvidence_OverridesStaleMethod(t *testing.T) {
	existing := entity.JSONMap{"method": "auto_username", "target_platform": "matrix"}

	evidence := verificationEvidence(existing, "telegram")

	assert.Equal(t, "verification_code", evidence["method"])
	assert.Equal(t, "telegram", evidence["target_platform"])
}
