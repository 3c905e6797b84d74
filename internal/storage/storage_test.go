package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadURL_EscapesPath(t *testing.T) {
	got := DownloadURL("inv-bucket", "users/1/items/2/a.jpg", "tok")
	assert.Equal(t,
		"https://firebasestorage.googleapis.com/v0/b/inv-bucket/o/users%2F1%2Fitems%2F2%2Fa.jpg?alt=media&token=tok",
		got)
}

func TestDisabled(t *testing.T) {
	var s BlobStore = Disabled{}
	_, err := s.Put(context.Background(), "p", "image/jpeg", []byte{1})
	require.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, s.Delete(context.Background(), "p"))
}
