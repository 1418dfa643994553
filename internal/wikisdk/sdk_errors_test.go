package wikisdk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	err := &APIError{Code: CodeDocumentNotFound, Message: "no such document"}
	assert.Contains(t, err.Error(), CodeDocumentNotFound)
	assert.Contains(t, err.Error(), "no such document")
}

func TestIsNotFound(t *testing.T) {
	docErr := &APIError{Code: CodeDocumentNotFound}
	spaceErr := &APIError{Code: CodeSpaceNotFound}
	otherErr := &APIError{Code: CodeAccessDenied}

	assert.True(t, IsNotFound(docErr))
	assert.True(t, IsNotFound(spaceErr))
	assert.False(t, IsNotFound(otherErr))
	assert.False(t, IsNotFound(errors.New("plain error")))
	assert.False(t, IsNotFound(nil))

	// wrapped errors still match
	assert.True(t, IsNotFound(fmt.Errorf("getDocumentContent: %w", docErr)))
}
