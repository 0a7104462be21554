package dedup

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
)

func newTestDeduper(existing ...string) *Deduper {
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	l := zerolog.Nop()

	return NewDeduper(seen, &l)
}

func TestLeadIDDeterministic(t *testing.T) {
	a := LeadID("100", "100_1")
	b := LeadID("100", "100_1")

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "lead_"))
	assert.Len(t, a, len("lead_")+16)
}

func TestLeadIDDistinguishesChatAndMessage(t *testing.T) {
	ids := map[string]struct{}{
		LeadID("100", "100_1"): {},
		LeadID("100", "100_2"): {},
		LeadID("200", "100_1"): {},
	}

	assert.Len(t, ids, 3)
}

func TestMaterializeJoinsVerdictWithMessage(t *testing.T) {
	batch := []domain.RawMessage{
		{ID: "100_1", ChatID: "100", ChannelTitle: "Jobs", Author: "@alice", Text: "need a designer", Timestamp: 1767225600000},
	}
	verdicts := []domain.Verdict{
		{MessageID: "100_1", IsLead: true, Confidence: 90, Reason: "hiring", LeadInfo: &domain.LeadInfo{Service: "design"}},
	}

	leads := newTestDeduper().Materialize(verdicts, batch)
	require.Len(t, leads, 1)

	lead := leads[0]
	assert.Equal(t, LeadID("100", "100_1"), lead.ID)
	assert.Equal(t, "Jobs", lead.Channel)
	assert.Equal(t, "@alice", lead.Author)
	assert.Equal(t, "need a designer", lead.Message)
	assert.Equal(t, int64(1767225600000), lead.Timestamp)
	assert.Equal(t, "hiring", lead.Reason)
	assert.Equal(t, 90, lead.Confidence)
	require.NotNil(t, lead.LeadInfo)
	assert.Equal(t, "design", lead.LeadInfo.Service)
}

func TestMaterializeDropsExistingLead(t *testing.T) {
	batch := []domain.RawMessage{{ID: "100_1", ChatID: "100"}}
	verdicts := []domain.Verdict{{MessageID: "100_1", IsLead: true, Confidence: 90}}

	d := newTestDeduper(LeadID("100", "100_1"))

	leads := d.Materialize(verdicts, batch)
	assert.Empty(t, leads)
}

func TestMaterializeDropsRepeatAcrossBatches(t *testing.T) {
	d := newTestDeduper()

	first := d.Materialize(
		[]domain.Verdict{{MessageID: "100_1", IsLead: true, Confidence: 90}},
		[]domain.RawMessage{{ID: "100_1", ChatID: "100"}},
	)
	require.Len(t, first, 1)

	second := d.Materialize(
		[]domain.Verdict{{MessageID: "100_1", IsLead: true, Confidence: 95}},
		[]domain.RawMessage{{ID: "100_1", ChatID: "100"}},
	)
	assert.Empty(t, second, "same message in a later batch must not produce a second lead")
}

func TestMaterializeSkipsVerdictWithoutMessage(t *testing.T) {
	leads := newTestDeduper().Materialize(
		[]domain.Verdict{{MessageID: "999_9", IsLead: true, Confidence: 90}},
		[]domain.RawMessage{{ID: "100_1", ChatID: "100"}},
	)

	assert.Empty(t, leads)
}

func TestNewDeduperCopiesSeedSet(t *testing.T) {
	seed := map[string]struct{}{}

	l := zerolog.Nop()
	d := NewDeduper(seed, &l)

	d.Materialize(
		[]domain.Verdict{{MessageID: "100_1", IsLead: true, Confidence: 90}},
		[]domain.RawMessage{{ID: "100_1", ChatID: "100"}},
	)

	assert.Empty(t, seed, "deduper must not mutate the caller's map")
	assert.True(t, d.Seen(LeadID("100", "100_1")))
}
