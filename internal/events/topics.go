package events

// Topics published by the client subsystems. Payload types are documented
// next to each constant.
const (
	// TopicLoginSucceeded carries models.User.
	TopicLoginSucceeded = "auth.login-succeeded"
	// TopicLoginFailed carries error.
	TopicLoginFailed = "auth.login-failed"
	// TopicLoggedOut carries nil.
	TopicLoggedOut = "auth.logged-out"
	// TopicTokenRefreshed carries models.Credential.
	TopicTokenRefreshed = "auth.token-refreshed"
	// TopicSessionExpired carries error (the refresh failure).
	TopicSessionExpired = "auth.session-expired"

	// TopicRealtimeState carries adapter.ConnState.
	TopicRealtimeState = "realtime.state-changed"
	// RealtimePrefix + event name carries models.Envelope.
	RealtimePrefix = "realtime."

	// TopicSyncStarted carries nil.
	TopicSyncStarted = "sync.started"
	// TopicSyncCompleted carries service.SyncSummary.
	TopicSyncCompleted = "sync.completed"
	// TopicSyncFailed carries error.
	TopicSyncFailed = "sync.failed"
	// TopicConflictDetected carries models.Conflict.
	TopicConflictDetected = "sync.conflict-detected"
	// TopicJournalAppended carries models.LocalChange.
	TopicJournalAppended = "sync.journal-appended"
	// TopicDataChanged carries models.EntityType.
	TopicDataChanged = "sync.data-changed"
	// TopicOnlineStatus carries bool.
	TopicOnlineStatus = "sync.online-status-changed"
)
