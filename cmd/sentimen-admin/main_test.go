package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestPromptPassword(t *testing.T) {
	t.Run("matching", func(t *testing.T) {
		stubPasswords(t, "rahasia", "rahasia")

		got, err := promptPassword()
		require.NoError(t, err)
		require.Equal(t, "rahasia", got)
	})

	t.Run("mismatch", func(t *testing.T) {
		stubPasswords(t, "rahasia", "lain")

		_, err := promptPassword()
		require.EqualError(t, err, "passwords do not match")
	})

	t.Run("read error", func(t *testing.T) {
		stubPasswords(t, "rahasia")

		_, err := promptPassword()
		require.ErrorContains(t, err, "read password")
	})
}
