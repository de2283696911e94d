package state

// push prepends a notification and trims the feed to MaxNotifications.
func (t *tx) push(message string) Notification {
	n := Notification{
		ID:        t.nextID("ntf"),
		Message:   message,
		Timestamp: t.now(),
	}
	feed := make([]Notification, 0, min(len(t.s.Notifications)+1, MaxNotifications))
	feed = append(feed, n)
	for _, old := range t.s.Notifications {
		if len(feed) == MaxNotifications {
			break
		}
		feed = append(feed, old)
	}
	t.s.Notifications = feed
	t.emit("notification.pushed", map[string]any{"id": n.ID, "message": message})
	return n
}

// PushNotification adds a message to the top of the feed.
type PushNotification struct {
	Message string `json:"message"`
}

func (PushNotification) Kind() string { return "notification.push" }

func (in PushNotification) apply(t *tx) error {
	var f fieldErrors
	f.require("message", in.Message)
	if err := f.err(); err != nil {
		return err
	}
	t.push(in.Message)
	return nil
}

// MarkNotificationRead flags one entry as read. Unknown IDs are ignored.
type MarkNotificationRead struct {
	ID string `json:"id"`
}

func (MarkNotificationRead) Kind() string { return "notification.mark_read" }

func (in MarkNotificationRead) apply(t *tx) error {
	for i := range t.s.Notifications {
		if t.s.Notifications[i].ID == in.ID {
			t.s.Notifications[i].Read = true
			return nil
		}
	}
	return nil
}

// ClearNotifications empties the feed.
type ClearNotifications struct{}

func (ClearNotifications) Kind() string { return "notification.clear" }

func (ClearNotifications) apply(t *tx) error {
	t.s.Notifications = nil
	return nil
}
