// Package verdict parses model classification output into verdicts and
// filters them against the confidence threshold.
package verdict

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
)

// DefaultConfidence is assigned when a verdict entry carries no usable
// confidence value.
const DefaultConfidence = 50

// Result holds the outcome of parsing one batch response.
type Result struct {
	// Verdicts are the entries that matched a message in the batch, in
	// response order.
	Verdicts []domain.Verdict

	// Discarded counts entries dropped for an unknown or missing
	// messageId.
	Discarded int
}

// Parser turns raw model output into verdicts.
type Parser struct {
	logger *zerolog.Logger
}

// NewParser creates a verdict parser.
func NewParser(logger *zerolog.Logger) *Parser {
	return &Parser{logger: logger}
}

// rawLead is the wire shape of one verdict entry. Confidence stays raw so
// numeric, quoted, and absent values all survive decoding.
type rawLead struct {
	MessageID  string           `json:"messageId"`
	IsLead     bool             `json:"isLead"`
	Confidence json.RawMessage  `json:"confidence"`
	Reason     string           `json:"reason"`
	LeadInfo   *domain.LeadInfo `json:"leadInfo"`
}

// Parse extracts verdicts from raw model output for the given batch.
//
// The response is matched against the batch: entries whose messageId does
// not belong to the batch are discarded and counted, never persisted. A
// response with a decodable envelope but no leads array yields zero
// verdicts without error. Only a response with no extractable JSON object
// at all is a parse failure.
func (p *Parser) Parse(raw string, batch []domain.RawMessage) (Result, error) {
	obj := extractJSONObject(raw)
	if obj == "" {
		return Result{}, fmt.Errorf("%w: no JSON object in response", apperrors.ErrParseFailure)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperrors.ErrParseFailure, err)
	}

	leadsRaw, ok := envelope["leads"]
	if !ok {
		p.logger.Warn().Msg("response envelope has no leads field")

		return Result{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(leadsRaw, &entries); err != nil {
		p.logger.Warn().Err(err).Msg("leads field is not an array")

		return Result{}, nil
	}

	known := make(map[string]struct{}, len(batch))
	for _, msg := range batch {
		known[msg.ID] = struct{}{}
	}

	res := Result{}

	for i, entry := range entries {
		var lead rawLead
		if err := json.Unmarshal(entry, &lead); err != nil {
			p.logger.Warn().Err(err).Int("entry", i).Msg("skipping undecodable verdict entry")
			res.Discarded++

			continue
		}

		if _, ok := known[lead.MessageID]; !ok {
			p.logger.Warn().Str("message_id", lead.MessageID).Msg("discarding verdict for unknown message")
			observability.VerdictsDiscarded.Inc()
			res.Discarded++

			continue
		}

		res.Verdicts = append(res.Verdicts, domain.Verdict{
			MessageID:  lead.MessageID,
			IsLead:     lead.IsLead,
			Confidence: coerceConfidence(lead.Confidence),
			Reason:     lead.Reason,
			LeadInfo:   lead.LeadInfo,
		})
	}

	return res, nil
}

// coerceConfidence normalizes a raw confidence value to an int in [0, 100].
// Numbers and numeric strings are accepted; anything else falls back to
// DefaultConfidence.
func coerceConfidence(raw json.RawMessage) int {
	if len(raw) == 0 {
		return DefaultConfidence
	}

	s := strings.TrimSpace(string(raw))

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return DefaultConfidence
	}

	return clampConfidence(int(f))
}

func clampConfidence(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
