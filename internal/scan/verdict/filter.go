package verdict

import "github.com/leadscan/telegram-lead-scanner/internal/core/domain"

// Filter keeps verdicts that are positive leads at or above the minimum
// confidence. The boundary is inclusive: at minimum 60, a confidence of 60
// passes and 59 does not. Order is preserved.
func Filter(verdicts []domain.Verdict, minConfidence int) []domain.Verdict {
	kept := make([]domain.Verdict, 0, len(verdicts))

	for _, v := range verdicts {
		if v.IsLead && v.Confidence >= minConfidence {
			kept = append(kept, v)
		}
	}

	return kept
}
