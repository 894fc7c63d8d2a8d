package model

// ProjectHours is one row of the weekly hours report.
type ProjectHours struct {
	ProjectName string  `json:"project_name"`
	HoursWorked float64 `json:"hours_worked"`
}

// HoursReport is the persisted hours CSV: the aggregated rows plus the
// timestamp they were collected at.
type HoursReport struct {
	CollectedAt string         `json:"datetime_collected"`
	Projects    []ProjectHours `json:"projects"`
}

// Summary is the structured reply of the language model. It is kept as a
// generic JSON object because the prompt template, not the code, decides its
// shape; only SummaryTimeKey is guaranteed.
type Summary map[string]any

const (
	// SummaryKey holds the summary text.
	SummaryKey = "summary"
	// SummaryTimeKey holds the generation timestamp (SummaryTimeLayout).
	SummaryTimeKey = "datetime_summary"
	// SummaryTimeLayout is the layout of SummaryTimeKey and of
	// HoursReport.CollectedAt.
	SummaryTimeLayout = "2006-01-02 15:04:05"
)

// Text returns the summary text, or "" when the reply carried none.
func (s Summary) Text() string {
	v, _ := s[SummaryKey].(string)
	return v
}
