//go:build integration

package integration_test

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	ValKey         *valkeytest.Server
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, name string) (istat infraStat) {
	t.Helper()

	// The binary reads ./config.yaml, so every test gets its own directory.
	istat.Procdir = filepath.Join(t.TempDir(), name)
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err := os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	return istat
}

func (istat *infraStat) UseBackend(baseURL string) {
	istat.Cfg.API.BaseURL = baseURL
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	istat.ValKey = valkeytest.Start(t.Context())
	istat.closeFuncs = append(istat.closeFuncs, istat.ValKey.Terminate)

	istat.Cfg.SessionStore.Type = config.SessionStoreValKey
	istat.Cfg.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: istat.ValKey.Addr()}
	istat.Cfg.ValKey.User = commoncfg.SourceRef{Source: "embedded", Value: ""}
	istat.Cfg.ValKey.Password = commoncfg.SourceRef{Source: "embedded", Value: ""}
}

// PrepareConfig writes Cfg into ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	cfgMap := make(map[string]any)
	err := mapstructure.Decode(istat.Cfg, &cfgMap)
	require.NoError(t, err, "failed to decode config")

	data, err := yaml.Marshal(cfgMap)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, data, fs.ModePerm)
	require.NoError(t, err, "failed to write config")
}

// Run executes the binary with args in Procdir and returns its stdout.
func (istat *infraStat) Run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmd := exec.CommandContext(t.Context(), filepath.Join(wd, binary), args...)
	cmd.Dir = istat.Procdir
	cmd.Env = append(os.Environ(), "HOME="+istat.Procdir)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		t.Logf("%s stderr: %s", strings.Join(args, " "), stderr.String())
	}

	return stdout.String(), err
}

func (istat *infraStat) Close(ctx context.Context) {
	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
