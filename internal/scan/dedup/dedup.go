// Package dedup derives stable lead identifiers and filters out leads that
// were already persisted.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
)

const (
	leadIDPrefix = "lead_"
	leadIDHexLen = 16
)

// LeadID derives the deterministic lead identifier for a message. The same
// chat and message always produce the same ID, across runs and processes,
// which is what makes persistence idempotent.
func LeadID(chatID, messageID string) string {
	sum := sha256.Sum256([]byte(chatID + ":" + messageID))

	return leadIDPrefix + hex.EncodeToString(sum[:])[:leadIDHexLen]
}

// Deduper tracks seen lead IDs across one scan run. It is seeded with the
// IDs already persisted in the row store and grows as new leads are
// materialized, so a message reposted in a later batch of the same run is
// also dropped.
type Deduper struct {
	seen   map[string]struct{}
	logger *zerolog.Logger
}

// NewDeduper creates a deduper seeded with existing lead IDs.
func NewDeduper(existing map[string]struct{}, logger *zerolog.Logger) *Deduper {
	seen := make(map[string]struct{}, len(existing))
	for id := range existing {
		seen[id] = struct{}{}
	}

	return &Deduper{seen: seen, logger: logger}
}

// Materialize joins filtered verdicts with their source messages into Lead
// records, dropping duplicates. Verdicts with no matching message in the
// batch are skipped. The deduper's seen set is extended with every lead
// returned.
func (d *Deduper) Materialize(verdicts []domain.Verdict, batch []domain.RawMessage) []domain.Lead {
	byID := make(map[string]domain.RawMessage, len(batch))
	for _, msg := range batch {
		byID[msg.ID] = msg
	}

	leads := make([]domain.Lead, 0, len(verdicts))

	for _, v := range verdicts {
		msg, ok := byID[v.MessageID]
		if !ok {
			continue
		}

		id := LeadID(msg.ChatID, msg.ID)
		if _, dup := d.seen[id]; dup {
			d.logger.Debug().Str("lead_id", id).Msg("dropping duplicate lead")
			observability.LeadsDeduplicated.Inc()

			continue
		}

		d.seen[id] = struct{}{}

		leads = append(leads, domain.Lead{
			ID:         id,
			Channel:    msg.ChannelTitle,
			Author:     msg.Author,
			Message:    msg.Text,
			Timestamp:  msg.Timestamp,
			Reason:     v.Reason,
			Confidence: v.Confidence,
			LeadInfo:   v.LeadInfo,
		})
	}

	return leads
}

// Seen reports whether a lead ID is already known to this run.
func (d *Deduper) Seen(id string) bool {
	_, ok := d.seen[id]

	return ok
}
