package service

import "errors"

// ErrPricingFailed wraps any pricing-step failure so callers can map the
// whole class without knowing which collaborator broke.
var ErrPricingFailed = errors.New("pricing failed")
