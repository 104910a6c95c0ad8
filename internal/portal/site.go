package portal

import (
	"fmt"
	"strings"

	"github.com/jimezsa/jobmine/internal/models"
)

const DefaultBaseURL = "https://jobmine.ccol.uwaterloo.ca"

// Site holds the fixed element ids and URLs of the portal markup. Components
// receive it at construction; tests substitute their own.
type Site struct {
	LoginURL      string
	SearchURL     string
	DetailBaseURL string

	LoginForm       string
	UsernameField   string
	PasswordField   string
	LoginSubmit     string // xpath
	LoginErrorClass string
	TokenCookie     string

	TermField       string
	EmployerField   string
	TitleField      string
	DisciplineField string // select name prefix, 1-based slot appended
	Levels          []LevelControl
	SearchButton    string

	FirstJob    string
	JobIDPrefix string
	NextPage    string
	// NextPageDisabledAttr, when set, marks a next-page control that is
	// rendered but inert. Pagination stops when the control carries it.
	NextPageDisabledAttr string

	Detail DetailFields
}

type LevelControl struct {
	Name string
	ID   string
}

// DetailFields are the element ids read from a job details page.
type DetailFields struct {
	PostingOpenDate      string
	LastDayToApply       string
	EmployerJobNumber    string
	Employer             string
	JobTitle             string
	WorkLocation         string
	AvailableOpenings    string
	HiringProcessSupport string
	WorkTermSupport      string
	Comments             string
	JobDescription       string
	Disciplines          string
	DisciplinesMore      string
	Levels               string
	Grades               string
}

func DefaultSite(baseURL string) Site {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	return Site{
		LoginURL:      base + "/psp/SS/?cmd=login&languageCd=ENG",
		SearchURL:     base + "/psc/SS/EMPLOYEE/WORK/c/UW_CO_STUDENTS.UW_CO_JOBSRCH.GBL",
		DetailBaseURL: base + "/psc/SS/EMPLOYEE/WORK/c/UW_CO_STUDENTS.UW_CO_STU_JOBDTLS.GBL?UW_CO_JOB_ID=",

		LoginForm:       "login",
		UsernameField:   "userid",
		PasswordField:   "pwd",
		LoginSubmit:     "//input[@type='submit'][@name='submit']",
		LoginErrorClass: "PSERRORTEXT",
		TokenCookie:     "PS_TOKEN",

		TermField:       "UW_CO_JOBSRCH_UW_CO_WT_SESSION",
		EmployerField:   "UW_CO_JOBSRCH_UW_CO_EMPLYR_NAME",
		TitleField:      "UW_CO_JOBSRCH_UW_CO_JOB_TITLE",
		DisciplineField: "UW_CO_JOBSRCH_UW_CO_ADV_DISCP",
		Levels: []LevelControl{
			{Name: "junior", ID: "UW_CO_JOBSRCH_UW_CO_COOP_JR"},
			{Name: "intermediate", ID: "UW_CO_JOBSRCH_UW_CO_COOP_INT"},
			{Name: "senior", ID: "UW_CO_JOBSRCH_UW_CO_COOP_SR"},
		},
		SearchButton: "UW_CO_JOBSRCHDW_UW_CO_DW_SRCHBTN",

		FirstJob:    "UW_CO_JOBRES_VW_UW_CO_JOB_ID$0",
		JobIDPrefix: "UW_CO_JOBRES_VW_UW_CO_JOB_ID$",
		NextPage:    "UW_CO_JOBRES_VW$hdown$0",

		Detail: DetailFields{
			PostingOpenDate:      "UW_CO_JOBDTL_DW_UW_CO_DOC_OPEN_DT",
			LastDayToApply:       "UW_CO_JOBDTL_DW_UW_CO_CHAR_EDATE",
			EmployerJobNumber:    "UW_CO_JOBDTL_VW_UW_CO_EMPLR_JOBNUM",
			Employer:             "UW_CO_JOBDTL_DW_UW_CO_EMPUNITDIV",
			JobTitle:             "UW_CO_JOBDTL_VW_UW_CO_JOB_TITLE",
			WorkLocation:         "UW_CO_JOBDTL_VW_UW_CO_WORK_LOCATN",
			AvailableOpenings:    "UW_CO_JOBDTL_VW_UW_CO_AVAIL_OPENGS",
			HiringProcessSupport: "UW_CO_OSR_EMPL_VW_UW_CO_EMPL_SUPPORT",
			WorkTermSupport:      "UW_CO_OSR_EMPL_VW_UW_CO_WT_SUPPORT",
			Comments:             "UW_CO_JOBDTL_VW_UW_CO_JOB_COMMENTS",
			JobDescription:       "UW_CO_JOBDTL_VW_UW_CO_JOB_DESCR",
			Disciplines:          "UW_CO_JOBDTL_DW_UW_CO_DESCR",
			DisciplinesMore:      "UW_CO_JOBDTL_DW_UW_CO_DESCR100",
			Levels:               "UW_CO_JOBDTL_DW_UW_CO_DESCR_100",
			Grades:               "UW_CO_JOBDTL_DW_UW_CO_TRANSCRIPT",
		},
	}
}

func (s Site) DetailURL(id models.ListingID) string {
	return s.DetailBaseURL + string(id)
}

// DisciplineXPath locates the option labelled name inside the slot-th
// discipline select (1-based).
func (s Site) DisciplineXPath(slot int, name string) string {
	return fmt.Sprintf("//select[@name='%s%d']/option[text()=%s]", s.DisciplineField, slot, xpathLiteral(name))
}

func xpathLiteral(value string) string {
	if !strings.Contains(value, "'") {
		return "'" + value + "'"
	}
	if !strings.Contains(value, `"`) {
		return `"` + value + `"`
	}
	parts := strings.Split(value, "'")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = "'" + part + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}

// byID builds a CSS selector for ids that contain characters like '$'.
func byID(id string) string {
	return fmt.Sprintf("[id=%q]", id)
}
