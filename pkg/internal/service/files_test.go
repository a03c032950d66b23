package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/internal/service"
	"github.com/yeisme/drivemini/pkg/internal/storage/s3/s3test"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/queue"
)

var modTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFiles(t *testing.T) (*service.FileService, *s3test.MemStore, *recordingPublisher, *countingInvalidator) {
	t.Helper()

	store := s3test.NewMemStore().
		Seed("uploads/readme.md", []byte("hello"), modTime).
		Seed("uploads/photos/cat.png", []byte("png"), modTime).
		Seed("uploads/photos/2025/dog.jpg", []byte("jpg!"), modTime).
		Seed("uploads/empty/.keep", nil, modTime)

	events, pub := newEmitter()
	inv := &countingInvalidator{}

	svc := service.NewFileService(store, testRoot, "drive",
		service.WithEvents(events),
		service.WithInvalidator(inv),
	)

	return svc, store, pub, inv
}

func TestFileService_List(t *testing.T) {
	svc, _, _, _ := newFiles(t)

	resp, err := svc.List(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, resp.Folders, 2)
	assert.Equal(t, "empty", resp.Folders[0].Name)
	assert.Equal(t, "photos/", resp.Folders[1].Path)
	assert.Equal(t, types.FileTypeFolder, resp.Folders[1].Type)

	require.Len(t, resp.Files, 1)
	assert.Equal(t, "readme.md", resp.Files[0].Name)
	assert.Equal(t, int64(5), resp.Files[0].Size)
	assert.Equal(t, types.FileTypeDocument, resp.Files[0].Type)
}

func TestFileService_ListHidesFolderMarker(t *testing.T) {
	svc, _, _, _ := newFiles(t)

	resp, err := svc.List(context.Background(), "/empty")
	require.NoError(t, err)

	assert.Equal(t, "empty/", resp.Path)
	assert.Empty(t, resp.Folders)
	assert.NotNil(t, resp.Files)
	assert.Empty(t, resp.Files)
}

func TestFileService_RejectsTraversal(t *testing.T) {
	svc, _, _, _ := newFiles(t)

	_, err := svc.List(context.Background(), "photos/../../secret")
	require.ErrorIs(t, err, service.ErrInvalidPath)
}

func TestFileService_CreateFolder(t *testing.T) {
	svc, store, _, inv := newFiles(t)

	resp, err := svc.CreateFolder(context.Background(), &types.CreateFolderRequest{Path: "photos", Name: "trips"})
	require.NoError(t, err)

	assert.Equal(t, "photos/trips/", resp.Path)
	assert.Contains(t, store.Keys(), "uploads/photos/trips/.keep")
	assert.Equal(t, 1, inv.Calls())
}

func TestFileService_CreateFolderInvalidName(t *testing.T) {
	svc, _, _, _ := newFiles(t)

	for _, name := range []string{"", "  ", "a/b", `a\b`, "what?", "x:y", "..", `"q"`, "<>", "a|b", "*"} {
		_, err := svc.CreateFolder(context.Background(), &types.CreateFolderRequest{Name: name})
		assert.ErrorIs(t, err, service.ErrInvalidName, "name %q", name)
	}
}

func TestFileService_DeleteFile(t *testing.T) {
	svc, store, pub, inv := newFiles(t)

	resp, err := svc.Delete(context.Background(), "readme.md")
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Deleted)
	assert.NotContains(t, store.Keys(), "uploads/readme.md")
	assert.Equal(t, 1, pub.count(queue.TopicObjectDeleted))
	assert.Equal(t, 1, inv.Calls())
}

func TestFileService_DeleteFolder(t *testing.T) {
	svc, store, pub, _ := newFiles(t)

	resp, err := svc.Delete(context.Background(), "photos/")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Deleted)
	assert.Equal(t, []string{"uploads/empty/.keep", "uploads/readme.md"}, store.Keys())
	assert.Equal(t, 2, pub.count(queue.TopicObjectDeleted))
}

func TestFileService_DeleteErrors(t *testing.T) {
	svc, _, _, inv := newFiles(t)
	ctx := context.Background()

	_, err := svc.Delete(ctx, "/")
	require.ErrorIs(t, err, service.ErrInvalidPath)

	_, err = svc.Delete(ctx, "missing.txt")
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Delete(ctx, "nothing-here/")
	require.ErrorIs(t, err, service.ErrNotFound)

	assert.Zero(t, inv.Calls())
}

func TestFileService_DownloadURL(t *testing.T) {
	svc, _, _, _ := newFiles(t)

	resp, err := svc.DownloadURL(context.Background(), "photos/cat.png")
	require.NoError(t, err)
	assert.Contains(t, resp.URL, "uploads/photos/cat.png")
	assert.Contains(t, resp.URL, "X-Amz-Expires=900")

	_, err = svc.DownloadURL(context.Background(), "photos/")
	require.ErrorIs(t, err, service.ErrInvalidPath)

	_, err = svc.DownloadURL(context.Background(), "nope.png")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestFileService_OpenAndPutContent(t *testing.T) {
	svc, _, pub, inv := newFiles(t)
	ctx := context.Background()

	put, err := svc.PutContent(ctx, &types.PutContentRequest{Path: "notes/todo.md", Content: "- ship it"})
	require.NoError(t, err)
	assert.Equal(t, "notes/todo.md", put.Path)
	assert.Equal(t, int64(9), put.Size)
	assert.Equal(t, 1, pub.count(queue.TopicObjectStored))
	assert.Equal(t, 1, inv.Calls())

	rc, info, err := svc.Open(ctx, "notes/todo.md")
	require.NoError(t, err)

	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "- ship it", string(data))
	assert.NotEmpty(t, info.ContentType)

	_, _, err = svc.Open(ctx, "notes/missing.md")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestClassifyFile(t *testing.T) {
	cases := map[string]types.FileType{
		"a.JPG":      types.FileTypeImage,
		"clip.ogg":   types.FileTypeVideo,
		"song.flac":  types.FileTypeAudio,
		"report.pdf": types.FileTypeDocument,
		"app.tsx":    types.FileTypeCode,
		"data.bin":   types.FileTypeOther,
		"Makefile":   types.FileTypeOther,
	}

	for name, want := range cases {
		assert.Equal(t, want, service.ClassifyFile(name), name)
	}
}
