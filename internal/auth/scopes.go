package auth

// Known OAuth scopes used by the stats API.
const (
	ScopeStatsRead  = "stats:read"
	ScopeStatsWrite = "stats:write"
)
