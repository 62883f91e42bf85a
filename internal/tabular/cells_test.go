package tabular

import (
	"testing"
	"time"

	"stock-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	want := models.Date(2024, time.January, 5)
	inputs := []string{
		"2024-01-05",
		"2024/01/05",
		"2024/1/5",
		" 2024-01-05 ",
		"2024/1/5 18:30",
		"2024-01-05 23:59:59",
		"2024-01-04T20:00:00Z", // 05:00 del 5 en Tokio
		"45296",                // serial de Excel
	}
	for _, in := range inputs {
		got, err := ParseDate(in, tokyo)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "tomorrow", "2024-13-40"} {
		_, err := ParseDate(in, time.UTC)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "10", want: 10},
		{in: " -3 ", want: -3},
		{in: "1,200", want: 1200},
		{in: "10.0", want: 10},
		{in: "2.5", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1e3", want: 1000},
		{in: "1e30", wantErr: true},
		{in: "-1e30", wantErr: true},
		{in: "Inf", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseInt(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"TRUE", "true", "1", "yes", "有", "○"} {
		assert.True(t, ParseBool(in), in)
	}
	for _, in := range []string{"", "false", "0", "no", "無"} {
		assert.False(t, ParseBool(in), in)
	}
}
