package types

// Feature areas of the home screen that a GM can hide per user.
const (
	AreaStats         = "stats"
	AreaChat          = "chat"
	AreaFeed          = "feed"
	AreaLicense       = "license"
	AreaRules         = "rules"
	AreaOrgs          = "orgs"
	AreaProfile       = "profile"
	AreaNotifications = "notifications"
)

// FeatureAreas lists every visibility key.
var FeatureAreas = []string{
	AreaStats, AreaChat, AreaFeed, AreaLicense, AreaRules, AreaOrgs, AreaProfile, AreaNotifications,
}

// Visibility maps feature areas to a shown flag. Missing keys are visible.
type Visibility map[string]bool

// Visible is fail-open: only an explicit false hides an area.
func (v Visibility) Visible(area string) bool {
	shown, ok := v[area]
	return !ok || shown
}

// Resolved returns a map with every feature area present. Keys outside FeatureAreas are dropped.
func (v Visibility) Resolved() Visibility {
	out := make(Visibility, len(FeatureAreas))
	for _, area := range FeatureAreas {
		out[area] = v.Visible(area)
	}
	return out
}

// IsFeatureArea reports whether area is a known visibility key.
func IsFeatureArea(area string) bool {
	for _, a := range FeatureAreas {
		if a == area {
			return true
		}
	}
	return false
}
