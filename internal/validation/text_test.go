package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

func TestText(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     int
		max     int
		want    string
		wantErr bool
	}{
		{name: "trims", value: "  опоздал на час \n", min: 1, max: 100, want: "опоздал на час"},
		{name: "strips control chars", value: "a\x00b\x1bc", min: 1, max: 10, want: "abc"},
		{name: "keeps newlines inside", value: "строка 1\nстрока 2", min: 1, max: 100, want: "строка 1\nстрока 2"},
		{name: "empty allowed", value: "   ", min: 0, max: 10, want: ""},
		{name: "empty rejected", value: "   ", min: 1, max: 10, wantErr: true},
		{name: "counts runes", value: strings.Repeat("я", 10), min: 1, max: 10, want: strings.Repeat("я", 10)},
		{name: "too long", value: strings.Repeat("я", 11), min: 1, max: 10, wantErr: true},
		{name: "invalid utf8", value: "\xff\xfe", min: 0, max: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text("поле", tt.value, tt.min, tt.max)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
