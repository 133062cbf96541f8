package mail

import (
	"fmt"
	"strings"
)

// Query selects newsletter messages. With FetchAll, or with no senders
// configured, every message inside the recency window matches.
type Query struct {
	FetchAll bool
	Senders  []string
	DaysBack int
}

// String renders the query in Gmail search syntax.
func (q Query) String() string {
	days := q.DaysBack
	if days <= 0 {
		days = 1
	}
	recency := fmt.Sprintf("newer_than:%dd", days)

	var senders []string
	for _, sender := range q.Senders {
		if sender = strings.TrimSpace(sender); sender != "" {
			senders = append(senders, "from:"+sender)
		}
	}

	if q.FetchAll || len(senders) == 0 {
		return recency
	}

	return "(" + strings.Join(senders, " OR ") + ") " + recency
}
