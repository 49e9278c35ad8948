package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleEvidence(t *testing.T) {
	t.Run("heaviest flows come first", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader(flowCSV(
			"2017-03-15 00:01:16,0.000,TCP,10.0.0.1,10.0.0.9,512,1,normal,---",
			"2017-03-15 00:02:16,0.000,TCP,10.0.0.2,10.0.0.9,2.5 M,9,attacker,bruteForce",
			"2017-03-15 00:03:16,0.000,UDP,10.0.0.3,10.0.0.9,64.8 K,4,normal,---",
		)), 0)
		require.NoError(t, err)

		rows := SampleEvidence(tbl, 2)
		require.Len(t, rows, 2)
		assert.Equal(t, "10.0.0.2", rows[0].Src)
		assert.Equal(t, "2.5 M", rows[0].Bytes)
		assert.Equal(t, "10.0.0.3", rows[1].Src)
	})

	t.Run("unparseable bytes keep input order", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader(flowCSV(
			"2017-03-15 00:01:16,0.000,TCP,10.0.0.1,10.0.0.9,n/a,1,normal,---",
			"2017-03-15 00:02:16,0.000,TCP,10.0.0.2,10.0.0.9,n/a,1,normal,---",
		)), 0)
		require.NoError(t, err)

		rows := SampleEvidence(tbl, 2)
		require.Len(t, rows, 2)
		assert.Equal(t, "10.0.0.1", rows[0].Src)
		assert.Equal(t, "10.0.0.2", rows[1].Src)
	})

	t.Run("k larger than table", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader(flowCSV(
			"2017-03-15 00:01:16,0.000,TCP,10.0.0.1,10.0.0.9,100,1,normal,---",
		)), 0)
		require.NoError(t, err)
		assert.Len(t, SampleEvidence(tbl, 8), 1)
	})

	t.Run("zero k yields nothing", func(t *testing.T) {
		tbl := &Table{Columns: []string{"a"}, Rows: []Row{{"a": "1"}}}
		assert.Nil(t, SampleEvidence(tbl, 0))
	})

	t.Run("raw joins all columns in order", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader("b,a\n2,1\n"), 0)
		require.NoError(t, err)
		rows := SampleEvidence(tbl, 1)
		require.Len(t, rows, 1)
		assert.Equal(t, "2 | 1", rows[0].Raw)
	})
}

func TestFormatEvidence(t *testing.T) {
	rows := []EvidenceRow{
		{Time: "2017-03-15 00:01:16", Src: "10.0.0.1", Dst: "10.0.0.9", Bytes: "2.5 M", AttackType: "bruteForce"},
		{Time: "2017-03-15 00:02:16", Src: "10.0.0.2", Dst: "10.0.0.9", Bytes: "512", AttackType: "---"},
	}
	got := FormatEvidence(rows)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[0] 2017-03-15 00:01:16 | 10.0.0.1 -> 10.0.0.9 | bytes=2.5 M | attackType=bruteForce", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[1] "))
}
