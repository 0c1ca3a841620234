package domain

import "time"

// Comment is a discussion entry on a ticket. CLOSED tickets are read-only
// and accept no further comments.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
