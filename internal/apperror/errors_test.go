package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      New(InvalidInput, "input error: file path must be a non-empty string"),
			expected: "input error: file path must be a non-empty string",
		},
		{
			name:     "message with cause",
			err:      Wrap(PredictionFailure, "prediction failed", errors.New("corrupt tensor")),
			expected: "prediction failed: corrupt tensor",
		},
		{
			name:     "bare kind",
			err:      &Error{Kind: FileNotFound},
			expected: "file_not_found",
		},
		{
			name:     "cause without message",
			err:      &Error{Kind: ModelLoad, Err: errors.New("bad header")},
			expected: "model_load: bad header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	cause := errors.New("device lost")
	err := fmt.Errorf("infer: %w", Wrap(PredictionFailure, "prediction failed", cause))

	assert.True(t, errors.Is(err, ErrPredictionFailure))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrModelLoad))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, UnsupportedFormat, KindOf(New(UnsupportedFormat, "input error: unsupported file format")))
	assert.Equal(t, CatalogLoad, KindOf(fmt.Errorf("startup: %w", ErrCatalogLoad)))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestWithPath(t *testing.T) {
	base := New(FileNotFound, "file error: file does not exist")
	withPath := base.WithPath("/tmp/x.jpg")

	assert.Equal(t, "/tmp/x.jpg", withPath.Path)
	assert.Empty(t, base.Path)
	assert.Equal(t, base.Error(), withPath.Error())
}

func TestKind_Fatal(t *testing.T) {
	assert.True(t, CatalogLoad.Fatal())
	assert.True(t, ModelLoad.Fatal())
	for _, k := range []Kind{InvalidInput, FileNotFound, UnsupportedFormat, PredictionFailure, Unknown} {
		assert.False(t, k.Fatal(), k.String())
	}
	assert.Equal(t, "unknown", Kind(99).String())
}
