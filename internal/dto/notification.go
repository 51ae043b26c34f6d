package dto

// UnreadCountResponse reports how many notifications are unread.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// NotificationListQuery filters the notification inbox.
type NotificationListQuery struct {
	UnreadOnly bool `form:"unread"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=200"`
}
