package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	require.Equal(t, "Locked", NewError(http.StatusLocked).Error())
	require.Equal(
		t,
		"Conflict: draft exists; try again",
		NewError(http.StatusConflict, " draft exists ", "", "try again").Error(),
	)
}

func TestCodeFrom(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "http error",
			err:      NewError(http.StatusLocked),
			expected: http.StatusLocked,
		},
		{
			name:     "wrapped http error",
			err:      fmt.Errorf("error saving: %w", NewError(http.StatusNotFound)),
			expected: http.StatusNotFound,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, CodeFrom(testCase.err))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	locked := fmt.Errorf("wrapped: %w", NewError(http.StatusLocked))
	require.True(t, IsLocked(locked))
	require.False(t, IsConflict(locked))
	require.False(t, IsLocked(nil))
	require.True(t, IsConflict(NewError(http.StatusConflict)))
	require.True(t, IsNotFound(NewError(http.StatusNotFound)))
	require.False(t, IsNotFound(errors.New("not found")))
}

func TestLimitRead(t *testing.T) {
	body, err := LimitRead(io.NopCloser(strings.NewReader("hello")), 10)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))

	body, err = LimitRead(io.NopCloser(strings.NewReader("hello")), 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))

	_, err = LimitRead(io.NopCloser(strings.NewReader("hello world")), 5)
	require.Error(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, CodeFrom(err))
}
