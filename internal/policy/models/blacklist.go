package models

// BlacklistEntry mirrors the blacklist relation the admin service maintains.
// No decision gate consults it today; it is exposed read-only on the ops
// surface until product decides how blacklisting interacts with relay
// policy.
type BlacklistEntry struct {
	ID          int64  `json:"id"`
	EntityValue string `json:"entity_value"` // e.g. "spammer.example", an IP, or a keyword
	EntityType  string `json:"entity_type"`  // "domain", "ip" or "keyword"
	Active      bool   `json:"is_active"`
}
