package verdict

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
)

func newTestParser() *Parser {
	l := zerolog.Nop()

	return NewParser(&l)
}

func batchOf(ids ...string) []domain.RawMessage {
	batch := make([]domain.RawMessage, len(ids))
	for i, id := range ids {
		batch[i] = domain.RawMessage{ID: id}
	}

	return batch
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"leads":[]}`, `{"leads":[]}`},
		{"prose wrapped", `Sure! Here is the analysis: {"leads":[]} Hope that helps.`, `{"leads":[]}`},
		{"markdown fenced", "```json\n{\"leads\":[]}\n```", `{"leads":[]}`},
		{"nested objects", `{"leads":[{"leadInfo":{"service":"x"}}]}`, `{"leads":[{"leadInfo":{"service":"x"}}]}`},
		{"brace inside string", `{"reason":"use {braces} freely"}`, `{"reason":"use {braces} freely"}`},
		{"escaped quote in string", `{"reason":"she said \"{\" loudly"}`, `{"reason":"she said \"{\" loudly"}`},
		{"picks largest span", `{"a":1} and then {"leads":[{"messageId":"1"}]}`, `{"leads":[{"messageId":"1"}]}`},
		{"no object", "no json here", ""},
		{"unbalanced", `{"leads":[`, ""},
		{"stray closing brace", `} {"leads":[]}`, `{"leads":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.raw))
		})
	}
}

func TestParseProseWrappedResponse(t *testing.T) {
	raw := "Here are the results you asked for:\n```json\n" +
		`{"leads":[{"messageId":"100_1","isLead":true,"confidence":90,"reason":"hiring"}]}` +
		"\n```\nLet me know if you need anything else!"

	res, err := newTestParser().Parse(raw, batchOf("100_1"))
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 1)
	assert.Equal(t, "100_1", res.Verdicts[0].MessageID)
	assert.True(t, res.Verdicts[0].IsLead)
	assert.Equal(t, 90, res.Verdicts[0].Confidence)
}

func TestParseDiscardsUnknownMessageID(t *testing.T) {
	raw := `{"leads":[
		{"messageId":"100_1","isLead":true,"confidence":80},
		{"messageId":"999_9","isLead":true,"confidence":95},
		{"messageId":"","isLead":true,"confidence":95}
	]}`

	res, err := newTestParser().Parse(raw, batchOf("100_1", "100_2"))
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 1)
	assert.Equal(t, "100_1", res.Verdicts[0].MessageID)
	assert.Equal(t, 2, res.Discarded)
}

func TestParseConfidenceCoercion(t *testing.T) {
	tests := []struct {
		name string
		conf string
		want int
	}{
		{"integer", `85`, 85},
		{"float truncates", `72.9`, 72},
		{"quoted integer", `"65"`, 65},
		{"quoted with spaces", `" 40 "`, 40},
		{"over range clamps", `150`, 100},
		{"negative clamps", `-10`, 0},
		{"null defaults", `null`, DefaultConfidence},
		{"garbage string defaults", `"very high"`, DefaultConfidence},
		{"empty string defaults", `""`, DefaultConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"leads":[{"messageId":"1_1","isLead":true,"confidence":` + tt.conf + `}]}`

			res, err := newTestParser().Parse(raw, batchOf("1_1"))
			require.NoError(t, err)
			require.Len(t, res.Verdicts, 1)
			assert.Equal(t, tt.want, res.Verdicts[0].Confidence)
		})
	}
}

func TestParseMissingConfidenceDefaults(t *testing.T) {
	raw := `{"leads":[{"messageId":"1_1","isLead":true,"reason":"looks promising"}]}`

	res, err := newTestParser().Parse(raw, batchOf("1_1"))
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 1)
	assert.Equal(t, DefaultConfidence, res.Verdicts[0].Confidence)
}

func TestParseNoLeadsFieldYieldsZeroVerdicts(t *testing.T) {
	res, err := newTestParser().Parse(`{"results":[]}`, batchOf("1_1"))
	require.NoError(t, err)
	assert.Empty(t, res.Verdicts)
}

func TestParseLeadsNotArrayYieldsZeroVerdicts(t *testing.T) {
	res, err := newTestParser().Parse(`{"leads":"none"}`, batchOf("1_1"))
	require.NoError(t, err)
	assert.Empty(t, res.Verdicts)
}

func TestParseFailure(t *testing.T) {
	for _, raw := range []string{"", "the model refused to answer", "{broken json"} {
		_, err := newTestParser().Parse(raw, batchOf("1_1"))
		assert.ErrorIs(t, err, apperrors.ErrParseFailure, "raw=%q", raw)
	}
}

func TestParseSkipsUndecodableEntry(t *testing.T) {
	raw := `{"leads":[
		{"messageId":"1_1","isLead":true,"confidence":70},
		"not an object",
		{"messageId":"1_2","isLead":false,"confidence":5}
	]}`

	res, err := newTestParser().Parse(raw, batchOf("1_1", "1_2"))
	require.NoError(t, err)
	assert.Len(t, res.Verdicts, 2)
	assert.Equal(t, 1, res.Discarded)
}

func TestParseCarriesLeadInfo(t *testing.T) {
	raw := `{"leads":[{"messageId":"1_1","isLead":true,"confidence":88,
		"leadInfo":{"service":"logo design","budget":"$500","contact":"@alice","urgency":"this week"}}]}`

	res, err := newTestParser().Parse(raw, batchOf("1_1"))
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 1)
	require.NotNil(t, res.Verdicts[0].LeadInfo)
	assert.Equal(t, "logo design", res.Verdicts[0].LeadInfo.Service)
	assert.Equal(t, "$500", res.Verdicts[0].LeadInfo.Budget)
}

func TestFilterInclusiveBoundary(t *testing.T) {
	verdicts := []domain.Verdict{
		{MessageID: "1_1", IsLead: true, Confidence: 59},
		{MessageID: "1_2", IsLead: true, Confidence: 60},
		{MessageID: "1_3", IsLead: true, Confidence: 61},
		{MessageID: "1_4", IsLead: false, Confidence: 99},
	}

	kept := Filter(verdicts, 60)
	require.Len(t, kept, 2)
	assert.Equal(t, "1_2", kept[0].MessageID)
	assert.Equal(t, "1_3", kept[1].MessageID)
}

func TestFilterZeroThresholdKeepsAllLeads(t *testing.T) {
	verdicts := []domain.Verdict{
		{MessageID: "1_1", IsLead: true, Confidence: 0},
		{MessageID: "1_2", IsLead: false, Confidence: 0},
	}

	kept := Filter(verdicts, 0)
	require.Len(t, kept, 1)
	assert.Equal(t, "1_1", kept[0].MessageID)
}
