package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpperBound(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "date covers the whole day",
			raw:  "2024-03-09",
			want: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month end rolls over",
			raw:  "2024-02-29",
			want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "timestamp covers its millisecond",
			raw:  "2024-03-09T15:04:05.123456Z",
			want: time.Date(2024, 3, 9, 15, 4, 5, 124_000_000, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUpperBound(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := parseUpperBound("09/03/2024")
	assert.Error(t, err)
}
