package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"forensics-backend/internal/jobs"
)

// ErrMalformed marks inference output that violates the findings contract.
// It fails the job rather than being coerced into an empty report.
var ErrMalformed = errors.New("malformed inference output")

type rawEvidence struct {
	Label               string `json:"label"`
	VisualObservation   string `json:"visual_observation"`
	NarratedObservation string `json:"narrated_observation"`
	StartTime           string `json:"start_time"`
}

type rawFinding struct {
	Label               string        `json:"label"`
	Outcome             *string       `json:"outcome"`
	VisualObservation   string        `json:"visual_observation"`
	NarratedObservation string        `json:"narrated_observation"`
	StartTime           string        `json:"start_time"`
	EndTime             string        `json:"end_time"`
	BestFrameTime       string        `json:"best_frame_time"`
	Evidence            []rawEvidence `json:"evidence"`
}

type findingsEnvelope struct {
	Findings []rawFinding `json:"findings"`
}

// Assemble parses raw inference output into validated analysis entries.
// Every top-level finding must carry a label, an outcome and both
// start/end times; anything less is ErrMalformed. An empty findings list is
// a valid result (nothing of forensic interest detected).
func Assemble(raw json.RawMessage) ([]jobs.AnalysisEntry, error) {
	cleaned := stripCodeFences(string(raw))
	if strings.TrimSpace(cleaned) == "" {
		return nil, fmt.Errorf("%w: empty output", ErrMalformed)
	}

	findings, err := decodeFindings([]byte(cleaned))
	if err != nil {
		return nil, err
	}

	entries := make([]jobs.AnalysisEntry, 0, len(findings))
	for i, finding := range findings {
		if strings.TrimSpace(finding.Label) == "" {
			return nil, fmt.Errorf("%w: finding %d missing label", ErrMalformed, i)
		}
		if finding.Outcome == nil || strings.TrimSpace(*finding.Outcome) == "" {
			return nil, fmt.Errorf("%w: finding %d missing outcome", ErrMalformed, i)
		}
		if strings.TrimSpace(finding.StartTime) == "" || strings.TrimSpace(finding.EndTime) == "" {
			return nil, fmt.Errorf("%w: finding %d missing start/end time", ErrMalformed, i)
		}

		evidence := make([]jobs.Evidence, 0, len(finding.Evidence))
		for _, ev := range finding.Evidence {
			evidence = append(evidence, jobs.Evidence{
				Label:               ev.Label,
				VisualObservation:   ev.VisualObservation,
				NarratedObservation: ev.NarratedObservation,
				StartTime:           ev.StartTime,
			})
		}

		entries = append(entries, jobs.AnalysisEntry{
			Label:               finding.Label,
			Outcome:             *finding.Outcome,
			VisualObservation:   finding.VisualObservation,
			NarratedObservation: finding.NarratedObservation,
			StartTime:           finding.StartTime,
			EndTime:             finding.EndTime,
			BestFrameTime:       finding.BestFrameTime,
			Evidence:            evidence,
		})
	}
	return entries, nil
}

// decodeFindings accepts either a bare findings array or an object wrapping
// one under "findings"; backends emit both shapes.
func decodeFindings(data []byte) ([]rawFinding, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var findings []rawFinding
		if err := json.Unmarshal([]byte(trimmed), &findings); err != nil {
			return nil, fmt.Errorf("%w: decode findings array: %v", ErrMalformed, err)
		}
		return findings, nil
	}

	var envelope findingsEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode findings object: %v", ErrMalformed, err)
	}
	if envelope.Findings == nil {
		return nil, fmt.Errorf("%w: no findings field", ErrMalformed)
	}
	return envelope.Findings, nil
}

// stripCodeFences removes a surrounding markdown code fence if present.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
