package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("フォルダが見つかりません"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindConflict))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, err.Kind)
	assert.NotContains(t, err.Message, "db down")
}

func TestFieldError(t *testing.T) {
	err := FieldError("purchaseDate", "購入日を入力してください")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, map[string]string{"purchaseDate": "購入日を入力してください"}, err.Fields)
}
