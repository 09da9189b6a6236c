package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/docrag/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedContentType(t *testing.T) {
	for _, ct := range []string{"application/pdf", "image/png", "image/jpeg", "image/tiff", "IMAGE/PNG", "application/pdf; qs=1"} {
		assert.True(t, IsAllowedContentType(ct), ct)
	}
	for _, ct := range []string{"text/plain", "image/gif", "", "application/json"} {
		assert.False(t, IsAllowedContentType(ct), ct)
	}
}

func TestFilenameFromLocator(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"http://localhost:9000/tektome/abc_report.pdf?X-Amz-Signature=deadbeef", "abc_report.pdf"},
		{"http://localhost:9000/tektome/abc_%E6%9D%B1%E4%BA%AC.pdf?X-Amz-Date=1", "abc_東京.pdf"},
		{"file:///var/uploads/abc_file.png", "abc_file.png"},
		{"abc_plain.tiff", "abc_plain.tiff"},
	}
	for _, tt := range tests {
		got, err := FilenameFromLocator(tt.locator)
		require.NoError(t, err, tt.locator)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "http://host/", "http://host"} {
		_, err := FilenameFromLocator(bad)
		assert.ErrorIs(t, err, ErrInvalidLocator, bad)
	}
}

func TestPrependUniqueID(t *testing.T) {
	a := PrependUniqueID("/tmp/dir/report.pdf")
	b := PrependUniqueID("report.pdf")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_report.pdf"))
	_, err := uuid.Parse(a[:36])
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", OriginalName(a))
	assert.Equal(t, "report.pdf", OriginalName("report.pdf"))
	assert.Equal(t, "report.pdf", OriginalName(PrependUniqueID(`C:\docs\report.pdf`)))
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	obj, err := store.Upload(ctx, "東京都建築安全条例.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "東京都建築安全条例.pdf", obj.Filename)
	assert.Equal(t, "東京都建築安全条例.pdf", OriginalName(obj.StoredName))
	assert.True(t, strings.HasPrefix(obj.Locator, "file://"))

	name, err := FilenameFromLocator(obj.Locator)
	require.NoError(t, err)
	assert.Equal(t, obj.StoredName, name)

	data, err := os.ReadFile(filepath.Join(dir, "uploads", obj.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	ok, err := store.Contains(ctx, obj.StoredName)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := store.Delete(ctx, obj.StoredName)
	require.NoError(t, err)
	assert.True(t, deleted)

	ok, err = store.Contains(ctx, obj.StoredName)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err = store.Delete(ctx, obj.StoredName)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLocalStore_RejectsPaths(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Contains(context.Background(), "../etc/passwd")
	assert.True(t, fault.Is(err, fault.StorageNotFound))
}

func TestStorageFault(t *testing.T) {
	assert.Equal(t, fault.StorageError, storageFault(os.ErrPermission).Kind)
	assert.Equal(t, fault.StorageConnection, storageFault(context.DeadlineExceeded).Kind)

	existing := fault.New(fault.StorageNotFound, "")
	assert.Same(t, existing, storageFault(existing))
}
