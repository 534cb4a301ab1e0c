package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("mitra not found")

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("update mitra: %w", NotFound("mitra not found", errMissing))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.ErrorIs(t, err, errMissing)
}

func TestKindOf_Plain(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestError_Message(t *testing.T) {
	err := Infrastructure("storage unavailable", errors.New("dial tcp: refused"))
	assert.Equal(t, "storage unavailable: dial tcp: refused", err.Error())
	assert.Equal(t, "infrastructure_error", err.Kind.String())

	v := Validation("records must be a non-empty array", nil)
	assert.Equal(t, "records must be a non-empty array", v.Error())
}

func TestAs(t *testing.T) {
	pf := PreconditionFailed("reference dataset is empty", map[string]string{"side": "reference"})
	got, ok := As(fmt.Errorf("reconcile: %w", pf))
	assert.True(t, ok)
	assert.Equal(t, KindPreconditionFailed, got.Kind)
	assert.Equal(t, map[string]string{"side": "reference"}, got.Details)
}
