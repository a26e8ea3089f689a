package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexStringAbsorbsMixedShapes(t *testing.T) {
	var person pdlPerson
	payload := `{
		"first_name": "Jane",
		"last_name": "Doe",
		"emails": ["jane@example.com", {"address": "jd@corp.example"}, {"unknown": true}],
		"phone_numbers": [{"number": "+15125550199"}],
		"links": [{"url": "https://example.com/jane"}]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &person))

	assert.Equal(t, "Jane Doe", person.displayName())
	assert.Equal(t, []string{"jane@example.com", "jd@corp.example"}, flexStrings(person.Emails))
	assert.Equal(t, []string{"+15125550199"}, flexStrings(person.PhoneNumbers))
	assert.Equal(t, []string{"https://example.com/jane"}, flexStrings(person.Links))
}

func TestPdlPersonLocation(t *testing.T) {
	p := pdlPerson{LocationName: "Texas"}
	assert.Equal(t, "Texas", p.location())

	p.LocationGeneral = &pdlLocation{Display: "Austin, Texas"}
	assert.Equal(t, "Austin, Texas", p.location(), "display form wins over the bare name")
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in          string
		first, last string
	}{
		{"", "", ""},
		{"Jane", "Jane", ""},
		{"Jane Doe", "Jane", "Doe"},
		{"Jane Q. Doe", "Jane", "Doe"},
	}
	for _, tc := range cases {
		first, last := splitName(tc.in)
		assert.Equal(t, tc.first, first, tc.in)
		assert.Equal(t, tc.last, last, tc.in)
	}
}
