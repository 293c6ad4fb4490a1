package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/models"
)

func TestArchiveFileRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveFileRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archive_files")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &models.ArchiveFileRecord{
		ArchiveID:   12,
		ArchiveFile: "23",
		Status:      models.StatusPublished,
		User:        "curator",
	}
	require.NoError(t, repo.Upsert(context.Background(), record))
	require.Equal(t, "12/23", record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveFileRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveFileRepository(db)
	rows := sqlmock.NewRows([]string{"id", "archive_id", "archive_file", "status", "username", "last_modified", "created_at"}).
		AddRow("12/23", 12, "23", 2, "curator", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, archive_id, archive_file, status")).
		WithArgs("12/23").
		WillReturnRows(rows)

	record, err := repo.GetByID(context.Background(), "12/23")
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEadRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEadRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ead_files")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ead := &models.EadFile{
		EadID:       "NL-HaNA_1.04.02",
		CountryCode: "NL",
		Institution: "NL-HaNA",
		Archive:     "1.04.02",
		ArchiveID:   12,
		FindingAid:  "1.04.02",
		Filename:    "voc.xml",
		Status:      models.StatusNew,
	}
	require.NoError(t, repo.Create(context.Background(), ead))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ead_files WHERE ead_id = $1")).
		WithArgs("NL-HaNA_1.04.02").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "NL-HaNA_1.04.02"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ead_files WHERE ead_id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.Delete(context.Background(), "missing"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepositoryCreateAction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO log_actions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO log_objects")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO log_objects")).
		WillReturnResult(sqlmock.NewResult(2, 1))

	action := &models.LogAction{User: "curator"}
	objects := []models.LogObject{
		{ObjectID: "1042", ObjectType: "scan", Message: models.LogMessageMove},
		{ObjectID: "12/23", ObjectType: "archivefile", Message: models.LogMessageUpdate},
	}
	require.NoError(t, repo.CreateAction(context.Background(), action, objects))
	require.NotEmpty(t, action.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
