package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title:  "Academic Transcript",
		Header: []Field{{Label: "Student", Value: "SV001 - Nguyen Van A"}},
		Body: Dataset{
			Headers: []string{"Course", "Credits", "Total"},
			Rows: []map[string]string{
				{"Course": "CS101", "Credits": "3", "Total": "8.00"},
				{"Course": "MA101", "Credits": "2"},
			},
		},
		Summary: []Field{{Label: "GPA", Value: "8.00"}},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)
	expected := "Student,SV001 - Nguyen Van A\nCourse,Credits,Total\nCS101,3,8.00\nMA101,2,\nGPA,8.00\n"
	assert.Equal(t, expected, string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Document{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Document{})
	assert.Error(t, err)
}
