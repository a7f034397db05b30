package auth

// Known OAuth scopes used by the step backend.
const (
	ScopeStepsWrite  = "steps:write"
	ScopeGroupsRead  = "groups:read"
	ScopeGroupsWrite = "groups:write"
)
