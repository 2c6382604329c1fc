package domain

import "time"

// Comment captures a message in a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time

	Author *User
}
