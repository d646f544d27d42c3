package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/hanzi-api/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "best.onnx", cfg.Model.Path)
	assert.Equal(t, "auto", cfg.Model.Device)
	assert.Equal(t, "class_indices.json", cfg.Labels.ClassIndices)
	assert.Equal(t, "ID_to_chinese.json", cfg.Labels.IDToLabel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, model.Device{Kind: model.DeviceAuto}, cfg.Device())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8081
model:
  path: weights/cls.onnx
  device: cuda:1
log:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "weights/cls.onnx", cfg.Model.Path)
	assert.Equal(t, model.Device{Kind: model.DeviceCUDA, ID: 1}, cfg.Device())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HANZI_MODEL_DEVICE", "cpu")
	t.Setenv("HANZI_LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "cpu", cfg.Model.Device)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// Setenv restores the variable after the test; .env only fills unset ones.
	t.Setenv("HANZI_MODEL_PATH", "")
	require.NoError(t, os.Unsetenv("HANZI_MODEL_PATH"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HANZI_MODEL_PATH=from-dotenv.onnx\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.onnx", cfg.Model.Path)
}

func TestLoad_MalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=1\n"), 0o644))

	_, err := Load("")
	assert.ErrorContains(t, err, "failed to load .env")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"bad device", func(c *Config) { c.Model.Device = "tpu" }, "model.device"},
		{"empty model", func(c *Config) { c.Model.Path = " " }, "model.path"},
		{"empty labels", func(c *Config) { c.Labels.IDToLabel = "" }, "labels."},
		{"zero form size", func(c *Config) { c.Server.MaxFormMB = 0 }, "max_form_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.contains)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{}
	cfg.Paths.BaseDir = "/srv/hanzi"

	assert.Equal(t, "/srv/hanzi/best.onnx", cfg.Resolve("best.onnx"))
	assert.Equal(t, "/etc/labels.json", cfg.Resolve("/etc/labels.json"))
}

func TestResolve_StepsOutOfCmdServer(t *testing.T) {
	root := t.TempDir()
	serverDir := filepath.Join(root, "cmd", "server")
	require.NoError(t, os.MkdirAll(serverDir, 0o755))
	t.Chdir(serverDir)

	cfg := &Config{}
	got, err := filepath.EvalSymlinks(filepath.Dir(cfg.Resolve("best.onnx")))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
