package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
port: 9090
database_url: postgres://resume:secret@db:5432/resumes
media_dir: /srv/media
pdf_timeout: 45s
gate_private_resumes: true
cors_origins:
  - https://cv.example.com
log_level: debug
log_format: console
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://resume:secret@db:5432/resumes", cfg.DatabaseURL)
	assert.Equal(t, "/srv/media", cfg.MediaDir)
	assert.Equal(t, 45*time.Second, cfg.PDFTimeout)
	assert.True(t, cfg.GatePrivateResumes)
	assert.Equal(t, []string{"https://cv.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"port": 8000, "database_url": "resumes.db", "gate_private_resumes": false}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "resumes.db", cfg.DatabaseURL)
	assert.False(t, cfg.GatePrivateResumes)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "config.yaml", "port: [1, 2\n")

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "negative port", cfg: Config{Port: -1}, wantErr: "'port'"},
		{name: "port too large", cfg: Config{Port: 70000}, wantErr: "'port'"},
		{name: "negative timeout", cfg: Config{PDFTimeout: -time.Second}, wantErr: "'pdf_timeout'"},
		{name: "bad log format", cfg: Config{LogFormat: "xml"}, wantErr: "'log_format'"},
		{name: "missing chrome", cfg: Config{ChromePath: "/nonexistent/chrome"}, wantErr: "chrome binary not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Port: 9000, DatabaseURL: "resumes.db"}

	result := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 9000, result.Port, "file value kept")
	assert.Equal(t, "resumes.db", result.DatabaseURL)
	assert.Equal(t, DefaultMediaDir, result.MediaDir)
	assert.Equal(t, DefaultPDFTimeout, result.PDFTimeout)
	assert.Equal(t, DefaultLogLevel, result.LogLevel)
	assert.Equal(t, DefaultLogFormat, result.LogFormat)
	assert.Zero(t, cfg.PDFTimeout, "original untouched")
	assert.Empty(t, cfg.MediaDir, "original untouched")
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Port: 9000}
	result := cfg.MergeWithDefaults(Config{})
	assert.Equal(t, cfg, result)
}

func TestApplyEnv_OverridesFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", "port: 9090\nmedia_dir: /srv/media\nlog_level: debug\n")

	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("PDF_TIMEOUT", "5s")
	t.Setenv("GATE_PRIVATE_RESUMES", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "/srv/media", cfg.MediaDir, "unset env keeps file value")
	assert.Equal(t, 5*time.Second, cfg.PDFTimeout)
	assert.True(t, cfg.GatePrivateResumes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel, "empty env keeps file value")
	assert.Equal(t, ":7070", cfg.Addr())
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "eighty"},
		{"PDF_TIMEOUT", "forever"},
		{"GATE_PRIVATE_RESUMES", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Defaults()
			err := cfg.ApplyEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultPDFTimeout, cfg.PDFTimeout)
}
