package dto

// GraphNotificationBatch is the body Microsoft Graph posts to the webhook.
type GraphNotificationBatch struct {
	Value []GraphNotification `json:"value"`
}

// GraphNotification is one change notification.
type GraphNotification struct {
	SubscriptionID string            `json:"subscriptionId"`
	ClientState    string            `json:"clientState"`
	ChangeType     string            `json:"changeType"`
	Resource       string            `json:"resource"`
	ResourceData   GraphResourceData `json:"resourceData"`
}

// GraphResourceData identifies the changed message.
type GraphResourceData struct {
	ID string `json:"id"`
}

// WebhookAcceptedResponse acknowledges a notification batch.
type WebhookAcceptedResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
}
