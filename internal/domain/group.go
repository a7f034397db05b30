package domain

// GroupInfo mirrors the shared group document. The remote store is the sole
// source of truth; local copies are caches refreshed via subscription.
type GroupInfo struct {
	GroupID   string
	EnterCode string
	GroupName string
	LeaderUID string
	Members   []string
}

// HasMember reports whether uid is in the member list.
func (g GroupInfo) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// UserStepInfo is one user's public step record. The owning client is the only
// writer; every group member may read it. GroupID is the inverse pointer of
// GroupInfo.Members and the two must agree.
type UserStepInfo struct {
	UID     string
	Name    string
	Steps   int
	GroupID string
}
