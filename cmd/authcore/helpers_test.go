package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/bookwell/authcore"
	"github.com/bookwell/authcore/password"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func setAuthEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_SECRET_CURRENT", "base64:"+base64.StdEncoding.EncodeToString(testSecret))
}

func runCmd(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

func testAuthConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.Token.CurrentSecret = testSecret
	return cfg
}

func newTestServerEngine(t *testing.T) *authcore.Engine {
	t.Helper()
	cfg := testAuthConfig()
	cfg.Revocation.Enabled = true
	cfg.Revocation.Backend = authcore.RevocationMemory
	engine, cleanup, err := buildEngine(t.Context(), cfg, processConfig{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return engine
}

func fastHasher(t *testing.T) *password.Hasher {
	t.Helper()
	cfg := password.DefaultConfig()
	cfg.Memory = 8 * 1024
	cfg.Time = 1
	cfg.Parallelism = 1
	h, err := password.NewHasher(cfg)
	require.NoError(t, err)
	return h
}
