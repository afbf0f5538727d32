package main

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/bookwell/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeygen_DefaultSize(t *testing.T) {
	out, err := runCmd(t, NewKeygenCmd(), "")
	require.NoError(t, err)

	line := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(line, "base64:"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, "base64:"))
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	decoded, err := authcore.DecodeSecret(line)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestKeygen_CustomSize(t *testing.T) {
	out, err := runCmd(t, NewKeygenCmd(), "", "--bytes", "64")
	require.NoError(t, err)

	raw, err := authcore.DecodeSecret(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, raw, 64)
}

func TestKeygen_TooShort(t *testing.T) {
	_, err := runCmd(t, NewKeygenCmd(), "", "--bytes", "16")
	require.Error(t, err)
	assertErrorCode(t, err, "CONFIG_INVALID")
}

func TestKeygen_Unique(t *testing.T) {
	a, err := runCmd(t, NewKeygenCmd(), "")
	require.NoError(t, err)
	b, err := runCmd(t, NewKeygenCmd(), "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
