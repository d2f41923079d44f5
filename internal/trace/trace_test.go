package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crucible/internal/value"
)

func ts(sec int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestWriterProducesStrictJSON(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, tw.Record(ExperimentBegin{Timestamp: ts(0), Experiment: "demo", RunNumber: 1, RunToken: "tok"}))
	require.NoError(t, tw.Record(AtPart{Timestamp: ts(1), Part: "a"}))
	require.NoError(t, tw.Record(ExperimentEnd{Timestamp: ts(2), Experiment: "demo", RunNumber: 1, RunToken: "tok"}))
	require.NoError(t, tw.Close())

	var doc map[string]any
	dec := json.NewDecoder(strings.NewReader(buf.String()))
	dec.DisallowUnknownFields()
	require.NoError(t, dec.Decode(&doc), "finalized trace must be one strict JSON document")
	assert.Equal(t, float64(1), doc["version"])
	assert.Len(t, doc["trace"], 3)
}

func TestWriterStreamsBeforeClose(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, tw.Record(AtPart{Timestamp: ts(0), Part: "a"}))

	// entry visible on disk before finalization
	assert.Contains(t, buf.String(), `"part":"a"`)
	assert.False(t, strings.HasSuffix(buf.String(), "]}"))

	require.NoError(t, tw.Close())
	assert.True(t, strings.HasSuffix(buf.String(), "]}"))
}

func TestWriterCloseIdempotent(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, tw.Close())
	assert.Equal(t, 1, strings.Count(buf.String(), "]}"))

	err = tw.Record(AtPart{Timestamp: ts(0), Part: "a"})
	assert.Error(t, err)
}

func TestRoundTripEntries(t *testing.T) {
	entries := []Entry{
		ExperimentBegin{Timestamp: ts(0), Experiment: "demo", RunNumber: 2, RunToken: "tok"},
		AtPart{Timestamp: ts(1), Part: "f"},
		Step{
			Timestamp:  ts(2),
			Part:       "f.a",
			DataBefore: value.Map{},
			DataAfter:  value.Map{"x": value.Int(1)},
			PartData:   value.String("typed"),
		},
		Decision{Timestamp: ts(3), Part: "f.d", NextPart: "b"},
		FlowBegin{Timestamp: ts(4), Flow: "f", FirstPart: "a"},
		FlowEnd{Timestamp: ts(5), Flow: "f"},
		Error{Timestamp: ts(6), Part: "f.a", Message: "boom"},
		ResearcherDecision{Timestamp: ts(7), NextPart: "b"},
		PartAdded{Timestamp: ts(8), Part: "f.a", TypeName: "step.dump", Role: "step"},
		PartRemoved{Timestamp: ts(9), Part: "f.a"},
		Custom{Timestamp: ts(10), Name: "note", Payload: value.Map{"k": value.Bool(true)}},
		ExperimentEnd{Timestamp: ts(11), Experiment: "demo", RunNumber: 2, RunToken: "tok"},
	}

	var buf bytes.Buffer
	tw, err := NewWriter(&buf)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, tw.Record(e))
	}
	require.NoError(t, tw.Close())

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, loaded.Entries, len(entries))
	for i, e := range entries {
		assert.Equal(t, e, loaded.Entries[i], "entry %d", i)
	}
}

func TestLoadSortsByTimestamp(t *testing.T) {
	doc := `{"version": 1, "trace": [
{"event":"at_part","part":"b","timestamp":"2024-01-01T00:00:02Z"},
{"event":"at_part","part":"a","timestamp":"2024-01-01T00:00:01Z"}]}`
	tr, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tr.Entries, 2)
	assert.Equal(t, "a", tr.Entries[0].(AtPart).Part)
	assert.Equal(t, "b", tr.Entries[1].(AtPart).Part)
}

func TestLoadRejectsUnknownEvent(t *testing.T) {
	doc := `{"version": 1, "trace": [
{"event":"wormhole","timestamp":"2024-01-01T00:00:00Z"}]}`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
	assert.Contains(t, err.Error(), "wormhole")
}

func TestLoadRejectsBadVersion(t *testing.T) {
	for _, doc := range []string{
		`{"trace": []}`,
		`{"version": 0, "trace": []}`,
		`{"version": 99, "trace": []}`,
	} {
		_, err := Load(strings.NewReader(doc))
		assert.True(t, IsFormatError(err), "doc %s", doc)
	}
}

func TestLoadRejectsEntryWithoutTimestamp(t *testing.T) {
	doc := `{"version": 1, "trace": [{"event":"at_part","part":"a"}]}`
	_, err := Load(strings.NewReader(doc))
	assert.True(t, IsFormatError(err))
}

func TestPartPathPairsPartData(t *testing.T) {
	tr := &Trace{Version: 1, Entries: []Entry{
		ExperimentBegin{Timestamp: ts(0), Experiment: "demo", RunNumber: 1},
		AtPart{Timestamp: ts(1), Part: "a"},
		Step{Timestamp: ts(2), Part: "a", DataBefore: value.Map{}, DataAfter: value.Map{}, PartData: value.Int(7)},
		AtPart{Timestamp: ts(3)},
		ResearcherDecision{Timestamp: ts(4), NextPart: "b"},
		AtPart{Timestamp: ts(5), Part: "b"},
		Step{Timestamp: ts(6), Part: "b", DataBefore: value.Map{}, DataAfter: value.Map{}},
		AtPart{Timestamp: ts(7), Part: "quit"},
		ExperimentEnd{Timestamp: ts(8), Experiment: "demo", RunNumber: 1},
	}}

	path := tr.PartPath()
	require.Len(t, path, 4)
	assert.Equal(t, "a", path[0].Part)
	assert.True(t, value.Equal(value.Int(7), path[0].Data))
	assert.Equal(t, "", path[1].Part)
	assert.Nil(t, path[1].Data)
	assert.Equal(t, "b", path[2].Part)
	assert.Nil(t, path[2].Data)
	assert.Equal(t, "quit", path[3].Part)
}

func TestMarshalSplicesEventWithSortedKeys(t *testing.T) {
	raw, err := Marshal(AtPart{Timestamp: ts(0), Part: "a"})
	require.NoError(t, err)
	assert.Equal(t, `{"event":"at_part","part":"a","timestamp":"2024-01-01T00:00:00Z"}`, string(raw))
}
