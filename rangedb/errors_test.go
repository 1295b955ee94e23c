package rangedb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newErr(KindIO, "writing file", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "io")
	assert.Contains(t, err.Error(), "writing file")
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "file format", KindFileFormat.String())
	assert.Equal(t, "utf8", KindUTF8.String())
}
