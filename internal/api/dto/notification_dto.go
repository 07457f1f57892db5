package dto

type ListNotificationsRequest struct {
	Limit  int    `form:"limit"`
	Cursor string `form:"cursor"`
}

type ListNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Marked int `json:"marked"`
}
