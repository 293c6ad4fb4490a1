package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/models"
)

func TestPagelistRender(t *testing.T) {
	store := &stubScanStore{scans: map[int]*models.Scan{
		401: {Number: 401, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 2, Status: models.StatusNew, Title: "verso"},
		400: {Number: 400, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 1, Status: models.StatusPublished, FolioNumber: "1r"},
	}}
	svc := NewPagelistService(store, nil, 0, nil, nil)

	out, err := svc.Render(context.Background(), models.ScanGroup{ArchiveID: 12, ArchiveFile: "23"})
	require.NoError(t, err)

	body := string(out)
	require.Contains(t, body, `<pagelist archivefile="12/23" count="2">`)
	require.Contains(t, body, `<page seq="1" scan="400" status="2" folio="1r">`)
	require.Contains(t, body, `<page seq="2" scan="401" status="1" title="verso">`)
}

func TestPagelistRenderEmptyGroup(t *testing.T) {
	svc := NewPagelistService(&stubScanStore{}, nil, 0, nil, nil)

	out, err := svc.Render(context.Background(), models.ScanGroup{ArchiveID: 12, ArchiveFile: "99"})
	require.NoError(t, err)
	require.Contains(t, string(out), `count="0"`)
}
