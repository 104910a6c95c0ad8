package models

// ListingID identifies one job posting within a search result set.
type ListingID string

// NoJob pads the last work group so every group has the same arity.
// Workers skip it.
const NoJob ListingID = ""

// JobRecord is the structured form of one job posting detail page.
type JobRecord struct {
	JobID                string   `json:"job_id"`
	URL                  string   `json:"url,omitempty"`
	PostingOpenDate      string   `json:"posting_open_date"`
	LastDayToApply       string   `json:"last_day_to_apply"`
	EmployerJobNumber    string   `json:"employer_job_number"`
	Employer             string   `json:"employer"`
	JobTitle             string   `json:"job_title"`
	WorkLocation         string   `json:"work_location"`
	AvailableOpenings    int      `json:"available_openings"`
	HiringProcessSupport string   `json:"hiring_process_support"`
	WorkTermSupport      string   `json:"work_term_support"`
	Comments             string   `json:"comments"`
	JobDescription       string   `json:"job_description"`
	Disciplines          []string `json:"disciplines"`
	Levels               []string `json:"levels"`
	GradesRequired       bool     `json:"grades_required"`
}
