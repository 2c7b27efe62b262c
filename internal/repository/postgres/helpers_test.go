package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation_PgconnDriver(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "idx_links_pair"}
	assert.True(t, isUniqueViolation(err))
	assert.True(t, isUniqueViolation(fmt.Errorf("create link: %w", err)))
}

func TestIsUniqueViolation_PqDriver(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "idx_profiles_platform_user"}
	assert.True(t, isUniqueViolation(err))
	assert.True(t, isUniqueViolation(fmt.Errorf("upsert profile: %w", err)))
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "40001"}))
}
