package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the decision engine can translate them into protocol verdicts
// without knowing which backend failed.
//
// - ErrNotFound: entity does not exist in the store. Inactive accounts and
//   accounts without a quota row are reported as not found on purpose: the
//   decision path treats them as non-existent.
// - ErrUnavailable: backend temporarily unreachable. Maps to a temporary
//   failure on the wire, never to a permanent reject.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
