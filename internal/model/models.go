// Package model defines the strict candidate and job snapshots consumed by
// the matching engine, together with the normalization step that produces
// them from the loosely-typed rows the platform stores.
package model

// CandidateProfile is an immutable snapshot of a candidate as seen by the
// matching engine. Skills are lowercased, trimmed and deduplicated in
// insertion order. Optional fields are nil / empty when the candidate never
// provided them; the engine degrades those to neutral scores.
type CandidateProfile struct {
	ID                   string   `json:"id"`
	Skills               []string `json:"skills"`
	ExperienceYears      int      `json:"experienceYears"`
	ExpectedSalaryMin    *int     `json:"expectedSalaryMin,omitempty"`
	ExpectedSalaryMax    *int     `json:"expectedSalaryMax,omitempty"`
	PreferredArrangement string   `json:"preferredArrangement,omitempty"` // remote|onsite|hybrid|flexible
	PreferredShift       string   `json:"preferredShift,omitempty"`       // day|night|graveyard|flexible
	City                 string   `json:"city,omitempty"`
	WorkStatus           string   `json:"workStatus,omitempty"`
}

// JobPosting is an immutable snapshot of a job posting. The title is free
// text; the engine infers a required-experience baseline from it.
type JobPosting struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Skills      []string `json:"skills"`
	SalaryMin   *int     `json:"salaryMin,omitempty"`
	SalaryMax   *int     `json:"salaryMax,omitempty"`
	Arrangement string   `json:"arrangement,omitempty"`
	Shift       string   `json:"shift,omitempty"`
	City        string   `json:"city,omitempty"`
}
