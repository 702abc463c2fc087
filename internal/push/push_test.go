package push

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogcsv/internal/config"
)

type call struct {
	name  string
	args  []string
	stdin string
}

type recordingRunner struct {
	calls  []call
	failAt int
}

func (r *recordingRunner) Run(_ context.Context, name string, args []string, stdin io.Reader) error {
	c := call{name: name, args: args}
	if stdin != nil {
		blob, _ := io.ReadAll(stdin)
		c.stdin = string(blob)
	}
	r.calls = append(r.calls, c)
	if r.failAt > 0 && len(r.calls) == r.failAt {
		return errors.New("exit status 1")
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		ShopifyStore:  "demo.myshopify.com",
		ShopifyAPIKey: "shpat_1234567890",
		PushCommand:   "npx",
		PushArgs:      []string{"altera"},
	}
}

func quiet() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopify-products.csv")
	require.NoError(t, os.WriteFile(path, []byte("Handle\r\n"), 0o644))
	return path
}

func TestPushRunsCommandsInOrder(t *testing.T) {
	runner := &recordingRunner{}
	p, err := New(testConfig(), runner, quiet())
	require.NoError(t, err)

	csvPath := writeCSV(t)
	require.NoError(t, p.Push(context.Background(), csvPath))

	require.Len(t, runner.calls, 3)
	assert.Equal(t, call{name: "npx", args: []string{"altera", "shop", "add", "demo.myshopify.com"}, stdin: "shpat_1234567890\n"}, runner.calls[0])
	assert.Equal(t, call{name: "npx", args: []string{"altera", "shop", "test"}}, runner.calls[1])
	assert.Equal(t, call{name: "npx", args: []string{"altera", "import", "create", csvPath}}, runner.calls[2])
}

func TestPushStopsAtFirstFailure(t *testing.T) {
	runner := &recordingRunner{failAt: 2}
	p, err := New(testConfig(), runner, quiet())
	require.NoError(t, err)

	err = p.Push(context.Background(), writeCSV(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop test")
	assert.Len(t, runner.calls, 2)
}

func TestPushRequiresCSV(t *testing.T) {
	runner := &recordingRunner{}
	p, err := New(testConfig(), runner, quiet())
	require.NoError(t, err)

	err = p.Push(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, runner.calls)
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.ShopifyAPIKey = ""
	_, err := New(cfg, nil, nil)
	assert.ErrorContains(t, err, "SHOPIFY_API_KEY")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "shpat_...", MaskKey("shpat_1234567890"))
	assert.Equal(t, "***", MaskKey("abc"))
}
