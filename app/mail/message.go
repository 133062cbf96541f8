package mail

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/news-comb/app/item"
	"github.com/lysyi3m/news-comb/app/normalize"
	"golang.org/x/text/encoding/htmlindex"
	"google.golang.org/api/gmail/v1"
)

var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// ToCandidate converts a fully fetched message. now is the last resort for
// the published time when neither the Date header nor the server timestamp
// is usable.
func ToCandidate(msg *gmail.Message, now time.Time, normalizer *normalize.Normalizer) item.Candidate {
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	return item.Candidate{
		Title:       cmp.Or(strings.TrimSpace(headerValue(headers, "Subject")), item.MailTitlePlaceholder),
		IdentityKey: item.MailIdentityKey(msg.Id),
		Published:   publishedTime(headerValue(headers, "Date"), msg.InternalDate, now),
		Body:        extractBody(msg.Payload, normalizer),
		SourceName:  item.MailSourceName,
		Sender:      cmp.Or(strings.TrimSpace(headerValue(headers, "From")), item.UnknownSender),
	}
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header != nil && strings.EqualFold(header.Name, name) {
			decoded, err := headerDecoder.DecodeHeader(header.Value)
			if err != nil {
				return header.Value
			}
			return decoded
		}
	}
	return ""
}

func publishedTime(date string, internalDate int64, now time.Time) time.Time {
	if date = strings.TrimSpace(date); date != "" {
		if t, err := netmail.ParseDate(date); err == nil {
			return t
		}
		if t, err := dateparse.ParseAny(date); err == nil {
			return t
		}
		slog.Debug("Unparsable Date header, using server timestamp", "date", date)
	}

	if internalDate > 0 {
		return time.UnixMilli(internalDate).UTC()
	}

	return now
}

// extractBody prefers the concatenated text/plain parts and falls back to
// the concatenated text/html parts run through the normalizer.
func extractBody(payload *gmail.MessagePart, normalizer *normalize.Normalizer) string {
	if payload == nil {
		return ""
	}

	var plain, html strings.Builder
	collectParts(payload, &plain, &html)

	if text := strings.TrimSpace(plain.String()); text != "" {
		return text
	}
	if html.Len() > 0 {
		return strings.TrimSpace(normalizer.Run(html.String()))
	}
	return ""
}

func collectParts(part *gmail.MessagePart, plain, html *strings.Builder) {
	if part == nil {
		return
	}

	mimeType := strings.ToLower(strings.TrimSpace(part.MimeType))
	if part.Filename == "" && (mimeType == "text/plain" || mimeType == "text/html") {
		text, err := partText(part)
		if err != nil {
			slog.Warn("Failed to decode message part", "part", part.PartId, "mime_type", mimeType, "error", err)
		} else if mimeType == "text/plain" {
			plain.WriteString(text)
		} else {
			html.WriteString(text)
		}
	}

	for _, child := range part.Parts {
		collectParts(child, plain, html)
	}
}

func partText(part *gmail.MessagePart) (string, error) {
	if part.Body == nil || part.Body.Data == "" {
		return "", nil
	}

	data, err := decodeBase64URL(part.Body.Data)
	if err != nil {
		return "", err
	}

	if charset := partCharset(part.Headers); charset != "" {
		if decoded, err := decodeCharset(data, charset); err == nil {
			data = decoded
		} else {
			slog.Debug("Unknown charset, keeping raw bytes", "charset", charset, "error", err)
		}
	}

	return strings.ToValidUTF8(string(data), ""), nil
}

// decodeBase64URL accepts both padded and unpadded input.
func decodeBase64URL(data string) ([]byte, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(data), "=")

	decoded, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err == nil {
		return decoded, nil
	}

	decoded, stdErr := base64.RawStdEncoding.DecodeString(trimmed)
	if stdErr == nil {
		return decoded, nil
	}

	return nil, fmt.Errorf("failed to decode part body: %w", err)
}

func partCharset(headers []*gmail.MessagePartHeader) string {
	for _, header := range headers {
		if header == nil || !strings.EqualFold(header.Name, "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(header.Value)
		if err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(params["charset"]))
	}
	return ""
}

func decodeCharset(data []byte, charset string) ([]byte, error) {
	switch charset {
	case "utf-8", "utf8", "us-ascii":
		return data, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}

	return enc.NewDecoder().Bytes(data)
}
