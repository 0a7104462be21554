// Package prompt renders classification prompts from a criteria template
// and a batch of raw messages.
package prompt

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
)

// PlaceholderMessages is the token in a criteria template that the rendered
// message batch replaces.
const PlaceholderMessages = "${messagesText}"

// DefaultTemplate is the built-in classification template, used when the
// configuration carries no custom criteria.
const DefaultTemplate = `You are a lead qualification assistant. Analyze the following Telegram messages and decide for each one whether it is a potential client lead: someone looking to hire, buy a service, or requesting work with a budget.

Messages:
` + PlaceholderMessages + `

Respond with JSON only, in exactly this shape:
{
  "leads": [
    {
      "messageId": "string, the ID field of the message",
      "isLead": true,
      "confidence": 85,
      "reason": "short explanation",
      "leadInfo": {
        "service": "what they need",
        "budget": "stated budget or empty",
        "contact": "contact info or empty",
        "urgency": "stated urgency or empty"
      }
    }
  ]
}

Include one entry per message. Confidence is an integer from 0 to 100. Do not include any text outside the JSON object.`

// Validate checks that the template contains the message placeholder.
// Called before a run starts so a broken template never costs LLM spend.
func Validate(template string) error {
	if !strings.Contains(template, PlaceholderMessages) {
		return fmt.Errorf("%w: want %q", apperrors.ErrTemplateMissingPlaceholder, PlaceholderMessages)
	}

	return nil
}

// Build renders the prompt for one batch of messages. Messages keep their
// batch order; numbering is 1-based within the batch.
func Build(template string, batch []domain.RawMessage) (string, error) {
	if err := Validate(template); err != nil {
		return "", err
	}

	var sb strings.Builder

	for i, msg := range batch {
		fmt.Fprintf(&sb, "Message %d:\n", i+1)
		fmt.Fprintf(&sb, "ID: %s\n", msg.ID)
		fmt.Fprintf(&sb, "Channel: %s\n", msg.ChannelTitle)
		fmt.Fprintf(&sb, "Author: %s\n", msg.Author)
		fmt.Fprintf(&sb, "Timestamp: %s\n", msg.Time().UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "Content: %s\n", msg.Text)
		sb.WriteString("---\n")
	}

	return strings.ReplaceAll(template, PlaceholderMessages, sb.String()), nil
}
