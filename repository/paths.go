package repository

import "strings"

// Store layout. These paths are shared with existing data and must not change.
const (
	usersRoot          = "users"
	statsRoot          = "stats"
	licensesRoot       = "licenses"
	channelsRoot       = "channels"
	messagesRoot       = "messages"
	postsRoot          = "posts"
	notificationsRoot  = "notifications"
	orgsRoot           = "orgs"
	friendRequestsRoot = "friend_requests"
	sentRequestsRoot   = "friend_requests_sent"
	friendsRoot        = "friends"
	visibilityRoot     = "visibility"
	settingsRoot       = "settings"
	userSettingsRoot   = "settings_users"
	gmUsersRoot        = "gm_users"
	gmTagsPath         = "gm_tags"
)

func join(parts ...string) string {
	return strings.Join(parts, "/")
}

func userPath(id string) string {
	return join(usersRoot, id)
}

func statsPath(id string) string {
	return join(statsRoot, id)
}

func licensesPath(id string) string {
	return join(licensesRoot, id)
}

func channelPath(id string) string {
	return join(channelsRoot, id)
}

func messagesPath(channelID string) string {
	return join(messagesRoot, channelID)
}

func postPath(id string) string {
	return join(postsRoot, id)
}

func notificationsPath(userID string) string {
	return join(notificationsRoot, userID)
}

func orgPath(id string) string {
	return join(orgsRoot, id)
}

func inboxPath(recipientID string) string {
	return join(friendRequestsRoot, recipientID)
}

func sentPath(senderID string) string {
	return join(sentRequestsRoot, senderID)
}

func friendsPath(userID string) string {
	return join(friendsRoot, userID)
}

func visibilityPath(userID string) string {
	return join(visibilityRoot, userID)
}

func userSettingsPath(userID string) string {
	return join(userSettingsRoot, userID)
}

func gmUserPath(userID string) string {
	return join(gmUsersRoot, userID)
}
