package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

func TestParseCSV_HeaderVariants(t *testing.T) {
	data := "First Name,LAST_NAME,E-mail,Phone Number,tags,Notes\n" +
		"Ada,Lovelace,ADA@example.com,+62811,vip; newsletter ;vip,likes math\n" +
		",,,,,\n" +
		"Alan,Turing,alan@example.com,,,\n"

	rows, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		Line:      2,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+62811",
		Tags:      []string{"vip", "newsletter"},
		Notes:     "likes math",
	}, rows[0])
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "alan@example.com", rows[1].Email)
}

func TestParseCSV_RequiresEmailColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("name,phone\nAda,1\n"))
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestParseJSON(t *testing.T) {
	data := `[
		{"firstName": "Ada", "email": "ada@example.com", "tags": ["vip", "beta"]},
		{"first name": "Grace", "email": "grace@example.com", "tags": "a;b", "phone": 62811}
	]`

	rows, err := ParseJSON(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, []string{"vip", "beta"}, rows[0].Tags)
	assert.Equal(t, 2, rows[1].Line)
	assert.Equal(t, "62811", rows[1].Phone)
	assert.Equal(t, []string{"a", "b"}, rows[1].Tags)
}

func TestParseJSON_RejectsObject(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"email":"a@b.c"}`))
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"firstname", "lastname", "email", "tags"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Ada", "Lovelace", "ada@example.com", "vip"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Bad", "Row", "not-an-email", ""}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lovelace", rows[0].LastName)
	assert.Equal(t, []string{"vip"}, rows[0].Tags)
	assert.Equal(t, 3, rows[1].Line)

	assert.NoError(t, rows[0].Validate())
	err = rows[1].Validate()
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
	assert.Contains(t, err.Error(), "email must be a valid email address")
}

func TestParse_Dispatch(t *testing.T) {
	_, err := Parse("customers.txt", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, utils.ErrUnsupportedFile)

	rows, err := Parse("Customers.CSV", strings.NewReader("email\na@b.co\n"), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = Parse("customers.csv", strings.NewReader("email\na@b.co\nc@d.co\n"), 1)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestRow_ValidateRequiresEmail(t *testing.T) {
	err := Row{FirstName: "Ada"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}

func TestResult_Skip(t *testing.T) {
	var res Result
	res.Skip(3, "duplicate email")
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []RowError{{Row: 3, Message: "duplicate email"}}, res.Errors)
}

func TestWriteCSV_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	in := []Row{{FirstName: "Ada", Email: "ada@example.com", Tags: []string{"vip", "beta"}}}
	require.NoError(t, WriteCSV(&buf, in))

	out, err := ParseCSV(&buf)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0].Tags, out[0].Tags)
	assert.Equal(t, "ada@example.com", out[0].Email)
}
