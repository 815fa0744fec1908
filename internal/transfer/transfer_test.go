package transfer

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/model"
)

func sample() model.Dataset {
	start := int64(1_773_838_800_000)
	d := model.Dataset{
		Types: []model.Type{
			{ID: "t1", Name: "Work", Icon: "Briefcase"},
			{ID: "t2", Name: "Café <notes> & more", Icon: "Coffee"},
		},
		Subjects: []model.Subject{
			{ID: "s1", Name: "Client", TypeID: "t1", Icon: "Briefcase", IsActive: true, StartTime: &start},
			{ID: "s2", Name: "Reading", TypeID: "t2", Icon: "BookOpen"},
		},
		TimeEntries: []model.TimeEntry{
			{ID: "e1", SubjectID: "s1", StartTime: 1_773_800_000_000, EndTime: 1_773_800_600_000, Duration: 600, Date: "2026-03-18"},
			{ID: "e2", SubjectID: "gone", StartTime: 1_773_700_000_000, EndTime: 1_773_700_060_000, Duration: 60, Date: "2026-03-16"},
		},
		LastUpdated: 1,
		Version:     model.CurrentVersion,
	}
	out, _ := model.Normalize(d)
	return out
}

func TestExport_PrettyAndRefreshed(t *testing.T) {
	now := time.UnixMilli(1_773_900_000_000)

	data, err := Export(sample(), now)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, "{\n  \"types\": ["), s)
	assert.Contains(t, s, `"lastUpdated": 1773900000000`)
	assert.Contains(t, s, `<notes> & more`, "no HTML escaping")
	assert.False(t, strings.HasSuffix(s, "\n"))
	assert.NotContains(t, s, `"startTime": null`)
}

func TestRoundTrip(t *testing.T) {
	d := sample()
	now := time.UnixMilli(1_773_900_000_000)

	data, err := Export(d, now)
	require.NoError(t, err)

	got, fixes, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, fixes)

	d.LastUpdated = now.UnixMilli()
	assert.Equal(t, d, got)
}

func TestRoundTrip_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	now := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

	for round := 0; round < 20; round++ {
		d := model.DefaultDataset(now)
		for i := 0; i < rng.Intn(30); i++ {
			subject := d.Subjects[rng.Intn(len(d.Subjects))]
			begin := now.Add(-time.Duration(rng.Int63n(int64(60 * 24 * time.Hour))))
			end := begin.Add(time.Duration(rng.Int63n(int64(3 * time.Hour))))
			d.TimeEntries = append(d.TimeEntries, model.NewCompletedEntry(fmt.Sprintf("e%d", i), subject.ID, begin, end))
		}
		d, _ = model.Normalize(d)

		data, err := Export(d, now)
		require.NoError(t, err)
		got, _, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, d, got)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, _, err := Decode([]byte(`{"types": [`))

	require.True(t, IsValidationError(err))
	assert.Equal(t, Result{Success: false, Error: ReasonInvalidJSON}, ResultOf(err, nil))
}

func TestDecode_MissingKeys(t *testing.T) {
	payloads := []string{
		`{"subjects": [], "timeEntries": []}`,
		`{"types": [], "timeEntries": []}`,
		`{"types": [], "subjects": []}`,
		`{"types": null, "subjects": [], "timeEntries": []}`,
		`[]`,
	}
	for _, p := range payloads {
		_, _, err := Decode([]byte(p))
		require.Error(t, err, p)
		assert.Equal(t, ReasonInvalidFormat, ResultOf(err, nil).Error, p)
	}
}

func TestDecode_SchemaViolations(t *testing.T) {
	payloads := map[string]string{
		"type without name":     `{"types": [{"id": "t1", "icon": "x"}], "subjects": [], "timeEntries": []}`,
		"string duration":       `{"types": [], "subjects": [], "timeEntries": [{"id": "e", "subjectId": "s", "startTime": 0, "endTime": 1, "duration": "1", "date": "2026-01-01"}]}`,
		"bad date":              `{"types": [], "subjects": [], "timeEntries": [{"id": "e", "subjectId": "s", "startTime": 0, "endTime": 1, "duration": 1, "date": "1/1/2026"}]}`,
		"isActive not boolean":  `{"types": [{"id": "t", "name": "n", "icon": "i"}], "subjects": [{"id": "s", "name": "n", "typeId": "t", "icon": "i", "isActive": "yes"}], "timeEntries": []}`,
		"types not a list":      `{"types": {}, "subjects": [], "timeEntries": []}`,
		"negative duration":     `{"types": [], "subjects": [], "timeEntries": [{"id": "e", "subjectId": "s", "startTime": 0, "endTime": 1000, "duration": -4, "date": "2026-01-01"}]}`,
		"end before start":      `{"types": [], "subjects": [], "timeEntries": [{"id": "e", "subjectId": "s", "startTime": 5000, "endTime": 1000, "duration": 0, "date": "2026-01-01"}]}`,
		"subjects without type": `{"types": [], "subjects": [{"id": "s", "name": "n", "typeId": "t", "icon": "i", "isActive": false}], "timeEntries": []}`,
	}
	for name, p := range payloads {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode([]byte(p))
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, ReasonInvalidFormat, ve.Reason)
			assert.NotEmpty(t, ve.Detail)
		})
	}
}

func TestDecode_LegacyPayload(t *testing.T) {
	// Older files: no version, extra keys, stale totals, idle subject with a start time.
	payload := `{
		"types": [{"id": "1", "name": "Work", "icon": "Briefcase", "color": "blue"}],
		"subjects": [{"id": "1", "name": "Client", "typeId": "1", "icon": "Briefcase", "isActive": false, "totalTime": 999, "startTime": 5}],
		"timeEntries": [{"id": "a", "subjectId": "1", "startTime": 0, "endTime": 120000, "duration": 120, "date": "2026-01-01"}],
		"lastUpdated": 10,
		"theme": "dark"
	}`

	d, fixes, err := Decode([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, model.CurrentVersion, d.Version)
	assert.Nil(t, d.Subjects[0].StartTime)
	assert.Equal(t, int64(120), d.Subjects[0].TotalTime)
	assert.Len(t, fixes, 2)
	assert.Equal(t, Result{Success: true, Fixes: fixes}, ResultOf(nil, fixes))
}

func TestDecode_EmptyCollections(t *testing.T) {
	d, _, err := Decode([]byte(`{"types": [], "subjects": [], "timeEntries": []}`))
	require.NoError(t, err)
	assert.Empty(t, d.Types)
	assert.NotNil(t, d.TimeEntries)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Reason: ReasonInvalidFormat, Detail: `missing "types"`}
	assert.Equal(t, `Invalid data format: missing "types"`, err.Error())

	raw, jerr := json.Marshal(ResultOf(err, nil))
	require.NoError(t, jerr)
	assert.JSONEq(t, `{"success": false, "error": "Invalid data format"}`, string(raw))
}

func TestDecode_AcceptedPayloadChecksClean(t *testing.T) {
	payload := `{
		"types": [{"id": "t", "name": "Work", "icon": "Briefcase"}],
		"subjects": [{"id": "s", "name": "Client", "typeId": "gone", "icon": "Briefcase", "isActive": false}],
		"timeEntries": [{"id": "e", "subjectId": "s", "startTime": 1000, "endTime": 1000, "duration": 0, "date": "2026-01-01"}],
		"version": "1.0.0"
	}`

	d, fixes, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.Len(t, fixes, 1)
	assert.Equal(t, "t", d.Subjects[0].TypeID)
	assert.Empty(t, model.Check(d))
}
