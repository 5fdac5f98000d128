package database

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oahushop/internal/errx"
)

func TestInquiryLoadAllMissingDocument(t *testing.T) {
	store := NewInquiryStore(filepath.Join(t.TempDir(), "inquiries.json"))
	all, err := store.LoadAll()
	require.NoError(t, err)
	require.Empty(t, all)
	require.NotNil(t, all)
}

func TestInquiryAppendIsMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inquiries.json")
	store := NewInquiryStore(path)
	fixed := time.Date(2026, 7, 1, 9, 30, 0, 0, time.Local)
	store.Now = func() time.Time { return fixed }

	const n = 7
	for i := 1; i <= n; i++ {
		q, err := store.Append(map[string]string{"name": fmt.Sprintf("고객 %d", i)})
		require.NoError(t, err)
		require.Equal(t, i, q.ID)
		require.Equal(t, "2026-07-01 09:30:00", q.Timestamp)
	}

	all, err := NewInquiryStore(path).LoadAll()
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, q := range all {
		require.Equal(t, i+1, q.ID)
		require.Equal(t, fmt.Sprintf("고객 %d", i+1), q.Value("name"))
	}
}

func TestInquiryDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inquiries.json")
	store := NewInquiryStore(path)
	store.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local) }

	_, err := store.Append(map[string]string{"name": "홍길동", "message": "재입고 문의"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"inquiries":[{"id":1,"timestamp":"2026-01-02 03:04:05","name":"홍길동","message":"재입고 문의"}]}`, string(data))
}

func TestInquiryAppendWriteFailureIsLoud(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewInquiryStore(filepath.Join(blocker, "inquiries.json"))
	_, err := store.Append(map[string]string{"name": "a"})
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, errx.Status(err))
	require.Equal(t, errx.StorageErrorMessage, errx.Message(err))
}

func TestInquiryCorruptDocumentBlocksAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inquiries.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"inquiries": [`), 0o644))

	store := NewInquiryStore(path)
	_, err := store.Append(map[string]string{"name": "a"})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"inquiries": [`, string(data))
}
