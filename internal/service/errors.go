package service

import "errors"

var (
	// ErrInvalidCode means no pending link request matches the submitted
	// code on that platform.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrAnalysisInProgress means another matching run already holds the
	// single-flight lock for the profile.
	ErrAnalysisInProgress = errors.New("matching analysis already in progress")

	// ErrProfileUnlinked means the operation needs a profile that belongs
	// to an identity, but the profile is standalone.
	ErrProfileUnlinked = errors.New("profile is not linked to an identity")
)
