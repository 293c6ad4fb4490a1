package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/repository"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

// applyPlan replays a move plan against a slice of scan numbers ordered by
// sequence, returning the resulting order.
func applyPlan(t *testing.T, order []int, from, after int) []int {
	t.Helper()
	win, err := planMove(from, after, len(order))
	require.NoError(t, err)
	if win.NoOp {
		return order
	}

	result := make([]int, len(order))
	moved := order[from-1]
	for i, number := range order {
		seq := i + 1
		if seq == from {
			continue
		}
		if seq >= win.Low && seq <= win.High {
			seq += win.Delta
		}
		result[seq-1] = number
	}
	result[win.Target-1] = moved
	return result
}

func TestPlanMoveForward(t *testing.T) {
	require.Equal(t, []int{1, 3, 4, 5, 2}, applyPlan(t, []int{1, 2, 3, 4, 5}, 2, 5))
}

func TestPlanMoveBackward(t *testing.T) {
	require.Equal(t, []int{1, 5, 2, 3, 4}, applyPlan(t, []int{1, 2, 3, 4, 5}, 5, 1))
}

func TestPlanMoveToFront(t *testing.T) {
	require.Equal(t, []int{3, 1, 2}, applyPlan(t, []int{1, 2, 3}, 3, 0))
}

func TestPlanMoveNoOp(t *testing.T) {
	win, err := planMove(3, 2, 5)
	require.NoError(t, err)
	require.True(t, win.NoOp)

	win, err = planMove(3, 3, 5)
	require.NoError(t, err)
	require.True(t, win.NoOp)
}

func TestPlanMoveKeepsSequenceDense(t *testing.T) {
	base := []int{10, 20, 30, 40, 50, 60}
	for from := 1; from <= len(base); from++ {
		for after := 0; after <= len(base); after++ {
			order := applyPlan(t, append([]int(nil), base...), from, after)
			seen := make(map[int]bool, len(order))
			for _, number := range order {
				require.False(t, seen[number], "move %d after %d duplicated %d", from, after, number)
				seen[number] = true
			}
			require.Len(t, seen, len(base))
		}
	}
}

func TestPlanMoveRange(t *testing.T) {
	_, err := planMove(2, -1, 5)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrRange.Code, appErr.Code)

	_, err = planMove(2, 6, 5)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrRange.Code, appErr.Code)
}

func newSequenceMock(t *testing.T) (*SequenceManager, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	manager := NewSequenceManager(sqlxDB, repository.NewScanRepository(sqlxDB), repository.NewScanImageRepository(sqlxDB))
	return manager, mock, func() { db.Close() }
}

func scanRow(number, archiveID int, archiveFile string, seq int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"number", "archive_id", "archive_file", "sequence_number", "status", "date",
		"timeframe_from", "timeframe_to", "folio_number", "original_folio_number",
		"title", "language", "username", "metadata", "last_modified", "created_at",
	}).AddRow(number, archiveID, archiveFile, seq, 1, "", "", "", "", "", "", "", "curator", []byte("{}"), now, now)
}

func TestSequenceManagerInsertAppends(t *testing.T) {
	manager, mock, cleanup := newSequenceMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE scans IN SHARE ROW EXCLUSIVE MODE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0) FROM scans")).
		WithArgs(12, "23").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scans")).
		WillReturnRows(sqlmock.NewRows([]string{"number"}).AddRow(400))
	mock.ExpectCommit()

	scan := &models.Scan{ArchiveID: 12, ArchiveFile: "23", Status: models.StatusNew, User: "curator"}
	require.NoError(t, manager.Insert(context.Background(), scan))
	require.Equal(t, 6, scan.SequenceNumber)
	require.Equal(t, 400, scan.Number)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceManagerMove(t *testing.T) {
	manager, mock, cleanup := newSequenceMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE scans IN SHARE ROW EXCLUSIVE MODE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scans WHERE number = $1")).
		WithArgs(102).
		WillReturnRows(scanRow(102, 12, "23", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0) FROM scans")).
		WithArgs(12, "23").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT number, sequence_number FROM scans")).
		WithArgs(12, "23", 3, 5).
		WillReturnRows(sqlmock.NewRows([]string{"number", "sequence_number"}).
			AddRow(103, 3).AddRow(104, 4).AddRow(105, 5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scans SET sequence_number = sequence_number + $5")).
		WithArgs(12, "23", 3, 5, -1).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scans SET sequence_number = $2 WHERE number = $1")).
		WithArgs(102, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	scan, shifted, err := manager.Move(context.Background(), 102, 5)
	require.NoError(t, err)
	require.Equal(t, 5, scan.SequenceNumber)
	require.Equal(t, []repository.SequenceRef{
		{Number: 103, SequenceNumber: 2},
		{Number: 104, SequenceNumber: 3},
		{Number: 105, SequenceNumber: 4},
	}, shifted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceManagerMoveMissingScan(t *testing.T) {
	manager, mock, cleanup := newSequenceMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE scans IN SHARE ROW EXCLUSIVE MODE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scans WHERE number = $1")).
		WithArgs(999).
		WillReturnRows(scanRow(0, 0, "", 0).RowError(0, errors.New("no rows")))
	mock.ExpectRollback()

	_, _, err := manager.Move(context.Background(), 999, 1)
	require.Error(t, err)
}

func TestSequenceManagerRemoveClosesGap(t *testing.T) {
	manager, mock, cleanup := newSequenceMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE scans IN SHARE ROW EXCLUSIVE MODE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scans WHERE number = $1")).
		WithArgs(103).
		WillReturnRows(scanRow(103, 12, "23", 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0) FROM scans")).
		WithArgs(12, "23").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scan_images WHERE scan_number = $1")).
		WithArgs(103).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scans WHERE number = $1")).
		WithArgs(103).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT number, sequence_number FROM scans")).
		WithArgs(12, "23", 4, 5).
		WillReturnRows(sqlmock.NewRows([]string{"number", "sequence_number"}).
			AddRow(104, 4).AddRow(105, 5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scans SET sequence_number = sequence_number + $5")).
		WithArgs(12, "23", 4, 5, -1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	scan, shifted, err := manager.Remove(context.Background(), 103)
	require.NoError(t, err)
	require.Equal(t, 3, scan.SequenceNumber)
	require.Equal(t, []repository.SequenceRef{
		{Number: 104, SequenceNumber: 3},
		{Number: 105, SequenceNumber: 4},
	}, shifted)
	require.NoError(t, mock.ExpectationsWereMet())
}
