package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFillsDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 105, c.Training.SplitIndex)
	assert.Equal(t, 52, c.Training.MinTrainSize)
	assert.Equal(t, 52, c.Models.ARIMA.SeasonalPeriod)
	assert.Equal(t, 4, c.Models.Ensemble.Generations)
	assert.Equal(t, 10, c.Models.Pretrained.WindowLength)
	assert.Equal(t, "auto", c.Models.Pretrained.Device)
	assert.Equal(t, 30*time.Minute, c.Update.LockTTL)
	assert.Equal(t, "file", c.ParamStore.Type)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
training:
  split_index: 90
models:
  pretrained:
    device: cpu
`))
	require.NoError(t, err)
	assert.Equal(t, 90, c.Training.SplitIndex)
	assert.Equal(t, "cpu", c.Models.Pretrained.Device)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad source", "source:\n  type: s3\n"},
		{"bad device", "models:\n  pretrained:\n    device: tpu\n"},
		{"http backend without url", "models:\n  pretrained:\n    backend: http\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
		{"missing weights file", "models:\n  pretrained:\n    weights_path: /nonexistent/head.json\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"FINCAST_PREDICTIONS_DIR": "/tmp/preds",
		"REDIS_ADDR":              "cache:6380",
		"KAFKA_BROKERS":           "a:9092,b:9092",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "/tmp/preds", c.Paths.PredictionsDir)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\nserver:\n  port: 9090\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPretrainedWeightsPath(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, c.Models.Pretrained.WeightsPath)

	path := filepath.Join(t.TempDir(), "head.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"head","weights":[0.5,0.5]}`), 0o644))
	c, err = Parse([]byte("models:\n  pretrained:\n    weights_path: " + path + "\n"))
	require.NoError(t, err)
	assert.Equal(t, path, c.Models.Pretrained.WeightsPath)
}

func TestShippedConfigUsesBuiltinHead(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, c.Models.Pretrained.WeightsPath)
	assert.Equal(t, "linear", c.Models.Pretrained.Backend)
}
