package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cyberflux.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReportRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rec := ReportRecord{
		ID:         "r-1",
		CSVFile:    "logs.csv",
		PDFPath:    "tmp_reports/cyberflux_report_1.pdf",
		NumRecords: 1200,
		Suspicious: 84,
		LLMTrust:   0.85,
		UsedLLM:    true,
	}
	require.NoError(t, s.SaveReport(rec))

	got, err := s.GetReport("r-1")
	require.NoError(t, err)
	assert.Equal(t, rec.CSVFile, got.CSVFile)
	assert.Equal(t, rec.NumRecords, got.NumRecords)
	assert.Equal(t, rec.LLMTrust, got.LLMTrust)
	assert.True(t, got.UsedLLM)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetReportMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetReport("absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveReportIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	rec := ReportRecord{ID: "r-1", CSVFile: "a.csv", PDFPath: "a.pdf"}
	require.NoError(t, s.SaveReport(rec))
	rec.CSVFile = "b.csv"
	require.NoError(t, s.SaveReport(rec))

	got, err := s.GetReport("r-1")
	require.NoError(t, err)
	assert.Equal(t, "b.csv", got.CSVFile)

	list, err := s.ListReports(10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListReportsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"r-1", "r-2", "r-3"} {
		require.NoError(t, s.SaveReport(ReportRecord{ID: id, CSVFile: "logs.csv", PDFPath: id + ".pdf"}))
	}

	list, err := s.ListReports(2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r-3", list[0].ID)
}

func TestSessionTurns(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveTurn(SessionTurn{SessionID: "sess", TurnNumber: 1, Question: "q1", Answer: "a1"}))
	require.NoError(t, s.SaveTurn(SessionTurn{SessionID: "sess", TurnNumber: 2, Question: "q2", Answer: "a2"}))
	// Replayed turn is ignored, not overwritten.
	require.NoError(t, s.SaveTurn(SessionTurn{SessionID: "sess", TurnNumber: 1, Question: "dup", Answer: "dup"}))

	turns, err := s.GetTurns("sess")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Question)
	assert.Equal(t, "a2", turns[1].Answer)

	other, err := s.GetTurns("other")
	require.NoError(t, err)
	assert.Empty(t, other)
}
