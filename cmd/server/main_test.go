package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestOccurrencesCommand(t *testing.T) {
	out, err := execute(t, "occurrences", "--weekday", "2", "--hour", "18", "--zone", "Asia/Kolkata", "--count", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		// 18:00 IST всегда 12:30 UTC, перехода на летнее время нет
		assert.Contains(t, line, "T12:30:00Z")
		assert.Contains(t, line, "Tue")
		assert.Contains(t, line, "18:00 IST")
	}
}

func TestOccurrencesCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown type", []string{"occurrences", "--type", "BEHAVIOURAL"}},
		{"bad zone", []string{"occurrences", "--zone", "Mars/Olympus"}},
		{"bad hour", []string{"occurrences", "--hour", "24"}},
		{"too many weeks", []string{"occurrences", "--count", "500"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer resetOccurrenceFlags()
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func resetOccurrenceFlags() {
	occWeekday = 1
	occHour = 10
	occZone = "UTC"
	occCount = 4
	occInterviewType = "DSA"
}
