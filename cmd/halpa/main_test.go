package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testSeed = `stores: [Prisma, Lidl]
products:
  - name: Maito 1l
    category: Dairy
    unit: 1l
    prices:
      - {store: Prisma, price: 1.29}
      - {store: Lidl, price: 1.09}
  - name: Kahvi 500g
    category: Beverages
    unit: 500g
    prices:
      - {store: Prisma, price: 5.49}
`

type testEnv struct {
	dir    string
	config string
}

// newTestEnv writes a config file pointing at a fresh database in a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: " + filepath.Join(dir, "halpa.db") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0600))

	return &testEnv{dir: dir, config: cfg}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// run executes the root command with args and returns its stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	e.mustRun(t, "seed", e.writeFile(t, "seed.yaml", testSeed))
}
