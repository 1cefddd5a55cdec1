package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/config"
	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/letters"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

const catalogYAML = `letters:
  - id: letter-to-the-unnamed
    title: To the unnamed
    rules: [secrets-cluster]
`

func secretsSnapshot() *genogram.Snapshot {
	return &genogram.Snapshot{
		RootMemberID: "me",
		Members: []genogram.Member{
			{ID: "me", Name: "Alex", Sex: genogram.SexFemale},
			{ID: "gm", Name: "Rosa", Sex: genogram.SexFemale},
		},
		Events: []genogram.Event{
			{ID: "s1", Kind: genogram.EventSecret, MemberID: "gm", Lineage: genogram.LineageMaternal, Severity: 5, IsSecret: true},
			{ID: "s2", Kind: genogram.EventChildLoss, MemberID: "gm", Lineage: genogram.LineageMaternal, Severity: 4, IsSecret: true},
			{ID: "s3", Kind: genogram.EventAbortion, Lineage: genogram.LineagePaternal, Severity: 3},
		},
	}
}

func newRegistry(t *testing.T, cfg *config.Config) *Registry {
	t.Helper()
	reg, err := New(context.Background(), cfg, Options{LogToStderr: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "letters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		reg := newRegistry(t, nil)

		assert.NotNil(t, reg.Config())
		assert.NotNil(t, reg.Logger())
		assert.NotNil(t, reg.Reporter())
		require.NotNil(t, reg.Engine())
		assert.Len(t, reg.Engine().Rules(), 6)
		assert.False(t, reg.Telemetry().IsEnabled())
		assert.IsType(t, &letters.Catalog{}, reg.Unlocker())
	})

	t.Run("engine honors configured thresholds", func(t *testing.T) {
		cfg := config.Default()
		cfg.Engine.MinScore = 90
		reg := newRegistry(t, cfg)

		a, err := reg.Engine().Analyze(context.Background(), secretsSnapshot(), 0)
		require.NoError(t, err)
		assert.Empty(t, a.Patterns)
	})

	t.Run("built-in catalog unlocks letters", func(t *testing.T) {
		reg := newRegistry(t, nil)

		a, err := reg.Engine().Analyze(context.Background(), secretsSnapshot(), 0)
		require.NoError(t, err)
		require.Len(t, a.Patterns, 1)
		assert.NotEmpty(t, a.Patterns[0].Unlocks)
	})

	t.Run("catalog file without watch", func(t *testing.T) {
		cfg := config.Default()
		cfg.Letters.CatalogPath = writeCatalog(t)
		cfg.Letters.Watch = false
		reg := newRegistry(t, cfg)

		assert.IsType(t, &letters.Catalog{}, reg.Unlocker())
		a, err := reg.Engine().Analyze(context.Background(), secretsSnapshot(), 0)
		require.NoError(t, err)
		require.Len(t, a.Patterns, 1)
		assert.Equal(t, []string{"letter-to-the-unnamed"}, a.Patterns[0].Unlocks)
	})

	t.Run("watched catalog file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Letters.CatalogPath = writeCatalog(t)
		reg := newRegistry(t, cfg)

		w, ok := reg.Unlocker().(*letters.Watcher)
		require.True(t, ok)
		assert.Equal(t, []string{"letter-to-the-unnamed"}, w.Current().ForRule(patterns.RuleSecrets))
	})

	t.Run("missing catalog file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Letters.CatalogPath = filepath.Join(t.TempDir(), "absent.yaml")

		_, err := New(context.Background(), cfg, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load letter catalog")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := config.Default()
		cfg.Logging.Level = "loud"

		_, err := New(context.Background(), cfg, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("quiet raises level", func(t *testing.T) {
		reg, err := New(context.Background(), nil, Options{LogToStderr: true, Quiet: true})
		require.NoError(t, err)
		defer func() { _ = reg.Close(context.Background()) }()

		assert.False(t, reg.Logger().Enabled(zap.InfoLevel))
		assert.True(t, reg.Logger().Enabled(zap.ErrorLevel))
	})
}

func TestCloseIsSafeAfterPartialInit(t *testing.T) {
	r := &Registry{}
	assert.NoError(t, r.Close(context.Background()))
}
