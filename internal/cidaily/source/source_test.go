package source

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "rfc3339 utc",
			in:   `"2026-08-25T10:00:00Z"`,
			want: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 with offset normalized to utc",
			in:   `"2026-08-25T12:00:00+02:00"`,
			want: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "no zone treated as utc",
			in:   `"2026-08-25T10:00:00"`,
			want: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "null is zero",
			in:   `null`,
			want: time.Time{},
		},
		{
			name: "empty is zero",
			in:   `""`,
			want: time.Time{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Time
			require.NoError(t, json.Unmarshal([]byte(tc.in), &ts))
			assert.True(t, tc.want.Equal(ts.Time), "want %s, got %s", tc.want, ts.Time)
		})
	}

	var ts Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}
