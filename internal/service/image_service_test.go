package service

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/repository"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

func newImageServiceMock(t *testing.T) (*ImageService, sqlmock.Sqlmock, func()) {
	t.Helper()
	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "sqlmock")

	scans := &stubScanStore{scans: map[int]*models.Scan{
		400: {Number: 400, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 1, Status: models.StatusNew},
	}}
	svc := NewImageService(db, repository.NewScanImageRepository(db), scans, nil, nil, &stubRefresher{}, &stubAudit{}, nil)
	return svc, mock, func() { rawDB.Close() }
}

func TestImageSetDefaultRollsBackOnMissingImage(t *testing.T) {
	svc, mock, cleanup := newImageServiceMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scan_images SET is_default = false WHERE scan_number = $1")).
		WithArgs(400).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scan_images SET is_default = true WHERE scan_number = $1 AND id = $2")).
		WithArgs(400, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.SetDefault(context.Background(), "curator", 400, 99)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImageSetDefaultCommits(t *testing.T) {
	svc, mock, cleanup := newImageServiceMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scan_images SET is_default = false WHERE scan_number = $1")).
		WithArgs(400).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scan_images SET is_default = true WHERE scan_number = $1 AND id = $2")).
		WithArgs(400, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.SetDefault(context.Background(), "curator", 400, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
