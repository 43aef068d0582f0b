package model

// Unknown is the placeholder for fields absent from a raw feed item. The
// feed omits parameters rather than sending nulls, so every record field is
// always populated.
const Unknown = "Unknown"

// ActivityRecord is one flattened usage event: the acting user plus the
// parameters of a single nested event group from the activity feed.
type ActivityRecord struct {
	Timestamp     string `json:"timestamp"`      // When the event occurred (ISO 8601, from the feed)
	UserEmail     string `json:"user_email"`     // Acting user identity
	AppName       string `json:"app_name"`       // Workspace application the assistant was used in
	Action        string `json:"action"`         // What the user did (e.g. help_me_write)
	EventCategory string `json:"event_category"` // Feature grouping reported by the feed
	FeatureSource string `json:"feature_source"` // Where in the UI the feature was triggered
}
