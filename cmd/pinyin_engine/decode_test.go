package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
)

func newDecodeTestCmd(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "decode"}
	addDecodeFlags(cmd)
	require.NoError(t, cmd.ParseFlags(flags))
	return cmd
}

func TestDecodeRequest_LambdaFlag(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		want    *float64
		invalid bool
	}{
		{name: "unset uses the dictionary setting", flags: nil},
		{name: "explicit zero is kept", flags: []string{"--lambda", "0"}, want: new(float64)},
		{name: "in range", flags: []string{"--lambda=0.25"}, want: func() *float64 { v := 0.25; return &v }()},
		{name: "negative is rejected", flags: []string{"--lambda=-0.5"}, invalid: true},
		{name: "above one is rejected", flags: []string{"--lambda=1.5"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := decodeRequest(newDecodeTestCmd(t, tt.flags...), []string{"ni", "hao"})
			if tt.invalid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, internalErrors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.BigramLambda)
			assert.Equal(t, 3, req.Matrix.Size())
		})
	}
}

func TestDecodeRequest_RejectsBadInput(t *testing.T) {
	_, err := decodeRequest(newDecodeTestCmd(t), []string{"ni-hao"})
	assert.True(t, errors.Is(err, internalErrors.ErrInvalidInput))

	_, err = decodeRequest(newDecodeTestCmd(t, "--beam=-1"), []string{"ni"})
	assert.True(t, errors.Is(err, internalErrors.ErrInvalidInput))
}
