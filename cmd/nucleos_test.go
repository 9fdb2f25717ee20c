package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteNucleos(t *testing.T) {
	names := []string{"Água Branca", "Jardim São Luís"}

	tests := []struct {
		format string
		want   string
	}{
		{"table", "Água Branca\nJardim São Luís\n"},
		{"json", "[\"Água Branca\",\"Jardim São Luís\"]\n"},
		{"yaml", "- Água Branca\n- Jardim São Luís\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeNucleos(&buf, tt.format, names))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteNucleos_EmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNucleos(&buf, "json", []string{}))
	assert.Equal(t, "[]\n", buf.String())
}
