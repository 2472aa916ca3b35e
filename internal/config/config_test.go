package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/bi-sensor/internal/bacnet"
	"github.com/sweeney/bi-sensor/internal/binaryinput"
)

const sample = `
binary_inputs:
  count: 4
  instances:
    - name: Boiler CH demand
      pin: 17
    - name: Boiler HW demand
      pin: 27
      polarity: reverse
    - name: Spare
      out_of_service: true
gpio:
  chip: gpiochip1
mqtt:
  broker: tcp://10.0.0.2:1883
  buffer_size: 64
  payload: cbor
`

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, uint32(4), cfg.BinaryInputs.Count)
	require.Len(t, cfg.BinaryInputs.Instances, 3)
	assert.Equal(t, "Boiler HW demand", cfg.BinaryInputs.Instances[1].Name)
	assert.Equal(t, "reverse", cfg.BinaryInputs.Instances[1].Polarity)
	assert.Nil(t, cfg.BinaryInputs.Instances[2].Pin)
	assert.Equal(t, "gpiochip1", cfg.GPIO.Chip)
	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.MQTT.Broker)
	assert.Equal(t, 64, cfg.MQTT.BufferSize)
	assert.Equal(t, "cbor", cfg.MQTT.Payload)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Zero(t, cfg.BinaryInputs.Count)
	assert.Empty(t, cfg.BinaryInputs.Instances)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "binary_inputs: [", "failed to parse YAML"},
		{"unknown key", "binary_input:\n  count: 1\n", "failed to parse YAML"},
		{"too many instances", "binary_inputs:\n  count: 1\n  instances:\n    - name: a\n    - name: b\n", "2 instances listed but count is 1"},
		{"bad polarity", "binary_inputs:\n  instances:\n    - polarity: sideways\n", "instance 0"},
		{"negative pin", "binary_inputs:\n  instances:\n    - pin: -1\n", "negative"},
		{"duplicate pin", "binary_inputs:\n  instances:\n    - pin: 4\n    - pin: 4\n", "already used by instance 0"},
		{"long name", "binary_inputs:\n  instances:\n    - name: " + strings.Repeat("x", binaryinput.MaxNameLength+1) + "\n", "name must be"},
		{"control characters in name", "binary_inputs:\n  instances:\n    - name: \"a\\tb\"\n", "name must be"},
		{"count too large", "binary_inputs:\n  count: 4194305\n", "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var ce *Error
			require.True(t, errors.As(err, &ce), "want *config.Error, got %T", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.BinaryInputs.Instances, 3)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadErrorsCarryPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Load(missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), missing)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("binary_inputs:\n  instances:\n    - polarity: up\n"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestResolveCount(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		env     map[string]string
		want    uint32
		wantErr bool
	}{
		{"explicit count wins", Config{BinaryInputs: BinaryInputs{Count: 8}}, map[string]string{"BI": "2"}, 8, false},
		{"instances imply count", Config{BinaryInputs: BinaryInputs{Instances: make([]InstanceConfig, 3)}}, map[string]string{"BI": "9"}, 3, false},
		{"env fallback", Config{}, map[string]string{"BI": "5"}, 5, false},
		{"nothing configured", Config{}, nil, 0, false},
		{"env zero", Config{}, map[string]string{"BI": "0"}, 0, false},
		{"env not a number", Config{}, map[string]string{"BI": "five"}, 0, true},
		{"env negative", Config{}, map[string]string{"BI": "-1"}, 0, true},
		{"env too large", Config{}, map[string]string{"BI": "4194305"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveCount(env(tt.env))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	o := binaryinput.New(4)
	require.NoError(t, cfg.Apply(o))

	name, _ := o.Name(0)
	assert.Equal(t, "Boiler CH demand", name)
	assert.Equal(t, bacnet.PolarityNormal, o.Polarity(0))
	assert.Equal(t, bacnet.PolarityReverse, o.Polarity(1))
	assert.True(t, o.OutOfService(2))
	assert.True(t, o.Changed(2), "provisioned out-of-service is reported on the first COV pass")

	name, _ = o.Name(3)
	assert.Equal(t, binaryinput.DefaultName(3), name, "unlisted instances keep their defaults")
}

func TestApplyOutsideTable(t *testing.T) {
	cfg := Config{BinaryInputs: BinaryInputs{Instances: make([]InstanceConfig, 2)}}
	err := cfg.Apply(binaryinput.New(1))
	assert.Error(t, err)
}

func TestInputs(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []Input{{Instance: 0, Pin: 17}, {Instance: 1, Pin: 27}}, cfg.Inputs())
	assert.Equal(t, []int{17, 27}, cfg.Pins())
	assert.Empty(t, (&Config{}).Pins())
}
