package domain

import "time"

type Notification struct {
	ID        string
	UserID    string
	Message   string
	Lu        bool
	DateEnvoi time.Time
}
