package db

import (
	"time"

	"githubtray/models"
)

// notificationRow mirrors the notifications table. Times are stored as unix
// seconds so both drivers scan them the same way.
type notificationRow struct {
	ID          int64  `db:"id"`
	Lane        string `db:"lane"`
	Title       string `db:"title"`
	Body        string `db:"body"`
	DeliveredAt int64  `db:"delivered_at"`
}

func (r notificationRow) model() models.DeliveredNotification {
	return models.DeliveredNotification{
		ID:          r.ID,
		Lane:        r.Lane,
		Title:       r.Title,
		Body:        r.Body,
		DeliveredAt: time.Unix(r.DeliveredAt, 0).UTC(),
	}
}

// Stats summarizes the ledger contents
type Stats struct {
	Notifications int64 `db:"notifications"`
	Transitions   int64 `db:"transitions"`
}
