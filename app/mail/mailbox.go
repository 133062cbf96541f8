package mail

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUser = "me"

	// Gmail's per-user quota; list and get each cost 5 units.
	quotaUnitsPerSecond = 250
	callQuotaUnits      = 5
)

type Mailbox interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
	Fetch(ctx context.Context, id string) (*gmail.Message, error)
}

var _ Mailbox = (*GmailMailbox)(nil)

type GmailMailbox struct {
	service *gmail.Service
	limiter *rate.Limiter
}

// NewGmailMailbox builds a mailbox over an already authorized HTTP client.
func NewGmailMailbox(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*GmailMailbox, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &GmailMailbox{
		service: service,
		limiter: rate.NewLimiter(quotaUnitsPerSecond, quotaUnitsPerSecond),
	}, nil
}

// Search returns up to maxResults message ids matching query, following
// result pages as needed.
func (m *GmailMailbox) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var ids []string
	pageToken := ""

	for len(ids) < maxResults {
		if err := m.wait(ctx); err != nil {
			return nil, err
		}

		call := m.service.Users.Messages.List(gmailUser).
			Q(query).
			MaxResults(int64(maxResults - len(ids))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to search messages: %w", err)
		}

		for _, msg := range resp.Messages {
			if msg != nil && msg.Id != "" {
				ids = append(ids, msg.Id)
			}
		}

		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}

	return ids, nil
}

func (m *GmailMailbox) Fetch(ctx context.Context, id string) (*gmail.Message, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	msg, err := m.service.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	return msg, nil
}

func (m *GmailMailbox) wait(ctx context.Context) error {
	if err := m.limiter.WaitN(ctx, callQuotaUnits); err != nil {
		return fmt.Errorf("gmail quota wait interrupted: %w", err)
	}
	return nil
}
