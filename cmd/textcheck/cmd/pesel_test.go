package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	outBuf, errBuf := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestPeselCmd_Arguments(t *testing.T) {
	out, _, err := execute(t, "", "pesel", "44051401359", "97082123152", "00280401638")

	require.NoError(t, err)
	assert.Equal(t, "1\n0\n1\n", out)
}

func TestPeselCmd_Stdin(t *testing.T) {
	out, _, err := execute(t, "  97082123152 \n", "pesel")

	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestPeselCmd_CheckDigit(t *testing.T) {
	out, _, err := execute(t, "", "pesel", "--check-digit", "97082123152")

	require.NoError(t, err)
	assert.Equal(t, "0 6\n", out)
}

func TestPeselCmd_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "too short", args: []string{"pesel", "1234"}},
		{name: "letters", args: []string{"pesel", "4405140135X"}},
		{name: "empty stdin", args: []string{"pesel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stderr, err := execute(t, tt.stdin, tt.args...)

			require.Error(t, err)
			assert.Empty(t, out)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestPeselCmd_StopsAtFirstMalformed(t *testing.T) {
	out, _, err := execute(t, "", "pesel", "44051401359", "123", "97082123152")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pesel format")
	assert.Equal(t, "1\n", out)
}
