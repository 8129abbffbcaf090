package gmail

import (
	"encoding/base64"
	"regexp"
	"strings"

	syncdomain "ats-backend/internal/mailsync/domain"

	"google.golang.org/api/gmail/v1"
)

// Common HTML markers used to classify an untyped single-part body.
var htmlMarkerRe = regexp.MustCompile(`(?i)<html|</div>|</p>|<br\s*/?>`)

// ExtractBodies walks a message's MIME part tree and collects the decoded
// text/html and text/plain bodies. Parts of the same kind are concatenated in
// encounter order; the walk is recursive so a multipart/mixed wrapping a
// multipart/alternative still yields both bodies. Malformed part data is
// skipped rather than failing the message.
func ExtractBodies(payload *gmail.MessagePart) syncdomain.Bodies {
	var bodies syncdomain.Bodies
	if payload == nil {
		return bodies
	}

	if len(payload.Parts) > 0 {
		collectParts(payload.Parts, &bodies)
	}

	if bodies.HTML == "" && bodies.Text == "" && payload.Body != nil {
		decoded, err := decodeBase64URL(payload.Body.Data)
		if err == nil && len(decoded) > 0 {
			s := string(decoded)
			// No declared part type to trust here; classify by content.
			if htmlMarkerRe.MatchString(s) {
				bodies.HTML = s
			} else {
				bodies.Text = s
			}
		}
	}

	return bodies
}

func collectParts(parts []*gmail.MessagePart, bodies *syncdomain.Bodies) {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Body != nil && part.Body.Data != "" {
			decoded, err := decodeBase64URL(part.Body.Data)
			if err == nil {
				switch strings.ToLower(part.MimeType) {
				case "text/html":
					bodies.HTML += string(decoded)
				case "text/plain":
					bodies.Text += string(decoded)
				}
			}
		}
		if len(part.Parts) > 0 {
			collectParts(part.Parts, bodies)
		}
	}
}

// decodeBase64URL decodes base64url data regardless of whether the producer
// included padding. Gmail omits it; some relays re-pad.
func decodeBase64URL(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
