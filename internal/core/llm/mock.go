package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
)

// mockLeadKeywords trigger a positive verdict in the mock classifier.
var mockLeadKeywords = []string{
	"looking for",
	"need a",
	"need an",
	"ищу",
	"нужен",
	"budget",
	"hire",
}

// mockProvider is a deterministic classifier for keyless development runs
// and tests. It parses the message blocks back out of the prompt and
// classifies by keyword match.
type mockProvider struct {
	logger *zerolog.Logger
}

// NewMockProvider creates the mock completion provider.
func NewMockProvider(logger *zerolog.Logger) Provider {
	return &mockProvider{logger: logger}
}

func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

// IsAvailable always returns true; the mock is only ever registered behind
// an explicit opt-in.
func (p *mockProvider) IsAvailable(domain.ScanCredentials) bool {
	return true
}

func (p *mockProvider) Priority() int {
	return PriorityMock
}

func (p *mockProvider) Complete(_ context.Context, prompt string, _ domain.ScanCredentials) (string, error) {
	type mockLead struct {
		MessageID  string `json:"messageId"`
		IsLead     bool   `json:"isLead"`
		Confidence int    `json:"confidence"`
		Reason     string `json:"reason"`
	}

	var leads []mockLead

	var currentID string

	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)

		if id, ok := strings.CutPrefix(line, "ID: "); ok {
			currentID = id

			continue
		}

		content, ok := strings.CutPrefix(line, "Content: ")
		if !ok || currentID == "" {
			continue
		}

		verdict := mockLead{
			MessageID:  currentID,
			Confidence: 10,
			Reason:     "no service request detected",
		}

		lower := strings.ToLower(content)
		for _, kw := range mockLeadKeywords {
			if strings.Contains(lower, kw) {
				verdict.IsLead = true
				verdict.Confidence = 85
				verdict.Reason = "message contains an explicit service request"

				break
			}
		}

		leads = append(leads, verdict)
		currentID = ""
	}

	out, err := json.Marshal(map[string]interface{}{"leads": leads})
	if err != nil {
		return "", err
	}

	p.logger.Debug().
		Str(logKeyProvider, string(ProviderMock)).
		Int("verdicts", len(leads)).
		Msg("mock classification complete")

	return string(out), nil
}

var _ Provider = (*mockProvider)(nil)
