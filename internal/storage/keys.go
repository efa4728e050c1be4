package storage

// Global index keys shared by the stores that write them and the metrics that read them
const (
	UsersWithAlertsKey    = "users_with_alerts"
	TrendingPrefsUsersKey = "trending_prefs_users"
)
