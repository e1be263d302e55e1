package jobs

import "time"

// JobSummary is the read-only projection of a job posting served by the
// backend. It is treated as an immutable value fetched per view.
type JobSummary struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Responsibilities string   `json:"responsibilities,omitempty"`
	Requirements     string   `json:"requirements,omitempty"`
	IdealCandidate   string   `json:"idealCandidate,omitempty"`
	Categories       []string `json:"categories"`
	OpType           string   `json:"opType"`
	StartDate        string   `json:"startDate,omitempty"`
	EndDate          string   `json:"endDate,omitempty"`
	Deadline         string   `json:"deadline,omitempty"`
	DatePosted       string   `json:"datePosted,omitempty"`
	Location         []string `json:"location"`
	RequiredSkills   []string `json:"requiredSkills,omitempty"`
	WhenAndWhere     string   `json:"whenAndWhere,omitempty"`
	OrgName          string   `json:"orgName"`
	LogoURL          string   `json:"logoUrl,omitempty"`
	Status           string   `json:"status,omitempty"`
	ApplicantsCount  int      `json:"applicantsCount,omitempty"`
	ViewsCount       int      `json:"viewsCount,omitempty"`
	IsBookmarked     bool     `json:"isBookmarked,omitempty"`
}

const zeroDate = "0001-01-01T00:00:00Z"

// FormatDate renders a backend timestamp for display. Empty and zero dates
// render as "Not specified"; unparseable values are returned unchanged.
func FormatDate(value string) string {
	if value == "" || value == zeroDate {
		return "Not specified"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return value
}
