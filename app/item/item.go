package item

import (
	"strings"
	"time"
)

const (
	FeedTitlePlaceholder = "No Title"
	MailTitlePlaceholder = "No Subject"
	UnknownSender        = "Unknown Sender"

	// MailSourceName tags every mail-origin record.
	MailSourceName = "email"

	mailKeyPrefix = "local://email/"
)

// Candidate is a record produced by a source fetch, not yet admitted to the store.
type Candidate struct {
	Title       string
	IdentityKey string // feed link verbatim, or local://email/<message-id>
	Published   time.Time
	Body        string
	SourceName  string
	Sender      string // mail only, informational
}

// MailIdentityKey synthesizes the identity key for a mailbox message.
func MailIdentityKey(messageID string) string {
	return mailKeyPrefix + messageID
}

func IsMailIdentityKey(key string) bool {
	return strings.HasPrefix(key, mailKeyPrefix)
}
