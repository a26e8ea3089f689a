package source

import (
	"encoding/json"
	"strings"

	"deepsearch/internal/search/models"
)

// The People Data Labs API is loose about shapes: emails arrive as strings or
// as {address: ...} objects depending on endpoint and plan, phones likewise.
// flexString absorbs both without failing the surrounding array.
type flexString struct {
	value string
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.value = s
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err == nil {
		for _, key := range []string{"address", "number", "url"} {
			if v, ok := obj[key].(string); ok && v != "" {
				f.value = v
				return nil
			}
		}
	}
	// Unknown shape: drop the element rather than fail the response.
	return nil
}

func flexStrings(in []flexString) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f.value != "" {
			out = append(out, f.value)
		}
	}
	return out
}

type pdlLocation struct {
	Display string `json:"display"`
}

type pdlJob struct {
	Title     string `json:"title"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Employer  string `json:"employer"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type pdlSchool struct {
	School    string `json:"school"`
	Degree    string `json:"degree"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type pdlPerson struct {
	FullName        string       `json:"full_name"`
	FirstName       string       `json:"first_name"`
	LastName        string       `json:"last_name"`
	Emails          []flexString `json:"emails"`
	PhoneNumbers    []flexString `json:"phone_numbers"`
	LocationGeneral *pdlLocation `json:"location_general"`
	LocationName    string       `json:"location_name"`
	Links           []flexString `json:"links"`
	Employment      []pdlJob     `json:"employment"`
	Education       []pdlSchool  `json:"education"`
}

func (p *pdlPerson) displayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *pdlPerson) location() string {
	if p.LocationGeneral != nil && p.LocationGeneral.Display != "" {
		return p.LocationGeneral.Display
	}
	return p.LocationName
}

func (p *pdlPerson) employment() []models.Employment {
	out := make([]models.Employment, 0, len(p.Employment))
	for _, e := range p.Employment {
		org := e.Name
		if org == "" {
			org = e.Company
		}
		if org == "" {
			org = e.Employer
		}
		out = append(out, models.Employment{
			Title:        e.Title,
			Organization: org,
			Start:        e.StartDate,
			End:          e.EndDate,
		})
	}
	return out
}

func (p *pdlPerson) education() []models.Education {
	out := make([]models.Education, 0, len(p.Education))
	for _, e := range p.Education {
		out = append(out, models.Education{
			School: e.School,
			Degree: e.Degree,
			Start:  e.StartDate,
			End:    e.EndDate,
		})
	}
	return out
}

// splitName splits a full name into first and last tokens, ignoring middles.
func splitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}
