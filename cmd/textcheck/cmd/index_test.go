package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCmd_Example(t *testing.T) {
	stdin := "3\ncat dog cat\ndog dog\ncat\n3\ncat\n dog \nbird\n"

	out, prompts, err := execute(t, stdin, "index", "--prompt=always")

	require.NoError(t, err)
	assert.Equal(t, "[0, 2]\n[1, 0]\n[]\n", out)
	assert.Contains(t, prompts, "Number of documents: ")
	assert.Contains(t, prompts, "Results:")
}

func TestIndexCmd_NoPromptsForPipedInput(t *testing.T) {
	out, prompts, err := execute(t, "1\ncat\n1\ncat\n", "index")

	require.NoError(t, err)
	assert.Equal(t, "[0]\n", out)
	assert.NotContains(t, prompts, "Number of documents")
}

func TestShowPrompts(t *testing.T) {
	r := strings.NewReader("")

	show, err := showPrompts("always", r)
	require.NoError(t, err)
	assert.True(t, show)

	show, err = showPrompts("never", r)
	require.NoError(t, err)
	assert.False(t, show)

	show, err = showPrompts("auto", r)
	require.NoError(t, err)
	assert.False(t, show)

	_, err = showPrompts("sometimes", r)
	assert.Error(t, err)
}

func TestIndexCmd_CRLFAndCase(t *testing.T) {
	stdin := "2\r\nThe Cat sat.\r\ncat, CAT!\r\n1\r\nCAT\r\n"

	out, _, err := execute(t, stdin, "index")

	require.NoError(t, err)
	assert.Equal(t, "[1, 0]\n", out)
}

func TestIndexCmd_ZeroCounts(t *testing.T) {
	out, _, err := execute(t, "0\n0\n", "index")

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestIndexCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		wantErr string
	}{
		{name: "count not a number", stdin: "three\n", wantErr: "reading document count"},
		{name: "negative count", stdin: "-1\n", wantErr: "must not be negative"},
		{name: "missing documents", stdin: "2\nonly one\n", wantErr: "unexpected end of input"},
		{name: "missing queries", stdin: "1\ncat\n2\ncat\n", wantErr: "reading queries"},
		{name: "oversized document count", stdin: "9223372036854775807\n", wantErr: "unexpected end of input"},
		{name: "oversized query count", stdin: "0\n9223372036854775807\nfoo\n", wantErr: "reading queries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.stdin, "index")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "[]", formatResult(nil))
	assert.Equal(t, "[7]", formatResult([]int{7}))
	assert.Equal(t, "[0, 2]", formatResult([]int{0, 2}))
}
