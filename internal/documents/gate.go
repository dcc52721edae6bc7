package documents

import "time"

// EntryStatus reports how one checklist entry is covered by submissions.
type EntryStatus struct {
	Name       string     `json:"name"`
	Required   bool       `json:"required"`
	Submitted  bool       `json:"submitted"`
	Verified   bool       `json:"verified"`
	VerifiedBy string     `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// GateResult is the outcome of evaluating a case's checklist.
type GateResult struct {
	CanForward bool          `json:"can_forward"`
	Required   []EntryStatus `json:"required"`
	Optional   []EntryStatus `json:"optional"`
	// Missing lists required entries with no submitted document.
	Missing []string `json:"missing"`
	// Unverified lists required entries submitted but not yet verified.
	Unverified []string `json:"unverified"`
}

// Blocking returns every required entry that stops the case from leaving
// screening.
func (g GateResult) Blocking() []string {
	out := make([]string, 0, len(g.Missing)+len(g.Unverified))
	out = append(out, g.Missing...)
	return append(out, g.Unverified...)
}

// Evaluate checks docs against the checklist of t. A required entry is
// satisfied only by a submitted document of the same type that is verified.
func Evaluate(t AssistanceType, docs []Document) GateResult {
	result := GateResult{Missing: []string{}, Unverified: []string{}}
	for _, entry := range checklists[t] {
		status := EntryStatus{Name: entry.Name, Required: entry.Required}
		for _, d := range docs {
			if d.DocType != entry.Name {
				continue
			}
			status.Submitted = true
			if d.Verified() && (status.VerifiedAt == nil || d.VerifiedAt.After(*status.VerifiedAt)) {
				status.Verified = true
				status.VerifiedBy = d.VerifiedBy
				at := *d.VerifiedAt
				status.VerifiedAt = &at
			}
		}
		if !entry.Required {
			result.Optional = append(result.Optional, status)
			continue
		}
		result.Required = append(result.Required, status)
		switch {
		case !status.Submitted:
			result.Missing = append(result.Missing, entry.Name)
		case !status.Verified:
			result.Unverified = append(result.Unverified, entry.Name)
		}
	}
	result.CanForward = t.Valid() && len(result.Missing) == 0 && len(result.Unverified) == 0
	return result
}
