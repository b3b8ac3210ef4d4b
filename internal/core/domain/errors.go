package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat       = errors.New("invalid question format")
	ErrMissingGoldLabel    = errors.New("missing gold label")
	ErrCitationNotFound    = errors.New("citation not found")
	ErrNoEvidence          = errors.New("no evidence")
	ErrAliasConfigMissing  = errors.New("law catalog missing")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
