// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/observability"
	"github.com/vxkeys/puppetry/internal/store"
)

// resetForTest silences the global logger for one test. The PersistentPreRunE
// initialization becomes a no-op afterwards because the logger singleton is
// already claimed.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.Initialize(
		config.LoggerConfig{Level: "fatal", Format: "json", ServiceName: "test"},
		zapcore.AddSync(io.Discard),
	)
	t.Cleanup(observability.ResetForTest)
}

// runCommand executes a fresh command tree and captures its combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a minimal config file backed by dir and returns its path.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfgPath := filepath.Join(dir, "puppetry.yaml")
	body := fmt.Sprintf("storage:\n  backend: files\n  dir: %q\nlogger:\n  level: fatal\n", dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath
}

// seedScenario stores one two-step scenario in the file store under dataDir.
func seedScenario(t *testing.T, dataDir, name string) *schemas.Scenario {
	t.Helper()
	repo, err := store.NewFileStore(dataDir, zaptest.NewLogger(t))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	sc := &schemas.Scenario{
		ID:   uuid.NewString(),
		Name: name,
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "https://example.com/"},
			{Kind: schemas.ActionGetTitle},
		},
		Meta: schemas.ScenarioMeta{TotalSteps: 2, CreatedAt: now, LastModified: now},
	}
	require.NoError(t, repo.Save(context.Background(), sc))
	return sc
}
