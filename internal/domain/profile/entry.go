package profile

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the YYYY/MM/DD form used for entry dates.
const DateLayout = "2006/01/02"

var (
	ErrInstitutionRequired = errors.New("institution is required")
	ErrDegreeRequired      = errors.New("degree is required")
	ErrCompanyRequired     = errors.New("company is required")
	ErrPositionRequired    = errors.New("position is required")
	ErrDatesRequired       = errors.New("start date and end date are required")
	ErrInvalidDate         = errors.New("date must use YYYY/MM/DD")
	ErrSkillEmpty          = errors.New("skill must not be empty")
	ErrSkillDuplicate      = errors.New("skill already exists")
)

type EducationEntry struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func (e EducationEntry) Validate() error {
	if strings.TrimSpace(e.Institution) == "" {
		return ErrInstitutionRequired
	}
	if strings.TrimSpace(e.Degree) == "" {
		return ErrDegreeRequired
	}
	return validateRange(e.StartDate, e.EndDate)
}

type ExperienceEntry struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (e ExperienceEntry) Validate() error {
	if strings.TrimSpace(e.Company) == "" {
		return ErrCompanyRequired
	}
	if strings.TrimSpace(e.Position) == "" {
		return ErrPositionRequired
	}
	return validateRange(e.StartDate, e.EndDate)
}

// CertificationEntry has no required fields.
type CertificationEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Issuer    string `json:"issuer"`
	IssueDate string `json:"issueDate"`
}

func validateRange(start, end string) error {
	if start == "" || end == "" {
		return ErrDatesRequired
	}
	if _, err := time.Parse(DateLayout, start); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, end); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateSkill checks a single tag against the current set. Matching is case-sensitive.
func ValidateSkill(skill string, existing []string) error {
	if strings.TrimSpace(skill) == "" {
		return ErrSkillEmpty
	}
	for _, s := range existing {
		if s == skill {
			return ErrSkillDuplicate
		}
	}
	return nil
}
