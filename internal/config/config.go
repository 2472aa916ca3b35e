// Package config loads binary input provisioning from YAML.
//
// The instance table size comes from binary_inputs.count, or the number of
// listed instances, or the BI environment variable when the file provides
// neither. Listed instances are provisioned in order starting at 0.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/bi-sensor/internal/bacnet"
	"github.com/sweeney/bi-sensor/internal/binaryinput"
)

// EnvCount names the environment variable consulted for the instance count.
const EnvCount = "BI"

// Config is the daemon's file configuration.
type Config struct {
	BinaryInputs BinaryInputs `yaml:"binary_inputs"`
	GPIO         GPIOConfig   `yaml:"gpio"`
	MQTT         MQTTConfig   `yaml:"mqtt"`
}

// BinaryInputs sizes and provisions the binary input object.
type BinaryInputs struct {
	Count           uint32           `yaml:"count"`
	StrictDataTypes bool             `yaml:"strict_data_types"`
	Instances       []InstanceConfig `yaml:"instances"`
}

// InstanceConfig provisions one instance. Pin is the GPIO line offset that
// drives the input; instances without a pin are only changed by writes.
type InstanceConfig struct {
	Name         string `yaml:"name"`
	Pin          *int   `yaml:"pin"`
	Polarity     string `yaml:"polarity"`
	OutOfService bool   `yaml:"out_of_service"`
}

// GPIOConfig selects the GPIO character device.
type GPIOConfig struct {
	Chip string `yaml:"chip"`
}

// MQTTConfig holds broker settings. Command-line flags override them.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	BufferSize int    `yaml:"buffer_size"`
	Payload    string `yaml:"payload"`
}

// Input maps an instance to the GPIO line that drives it.
type Input struct {
	Instance uint32
	Pin      int
}

// Error describes a configuration that could not be loaded.
type Error struct {
	// File is the path of the config file, empty for in-memory data.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return "config: " + msg
	}
	return "config: " + e.File + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Load reads and validates the config file at path.
// An empty path returns the zero configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates YAML config data. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Message: "failed to parse YAML", Cause: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the provisioning entries against each other and the
// instance count.
func (c *Config) Validate() error {
	bi := c.BinaryInputs
	if bi.Count > bacnet.MaxInstance+1 {
		return &Error{Message: fmt.Sprintf("binary_inputs.count %d exceeds %d", bi.Count, bacnet.MaxInstance+1)}
	}
	if bi.Count > 0 && uint32(len(bi.Instances)) > bi.Count {
		return &Error{Message: fmt.Sprintf("%d instances listed but count is %d", len(bi.Instances), bi.Count)}
	}

	pins := make(map[int]int)
	for i, ic := range bi.Instances {
		if ic.Name != "" && !binaryinput.ValidName(ic.Name) {
			return &Error{Message: fmt.Sprintf("instance %d: name must be printable and at most %d bytes", i, binaryinput.MaxNameLength)}
		}
		if _, err := bacnet.ParsePolarity(ic.Polarity); err != nil {
			return &Error{Message: fmt.Sprintf("instance %d", i), Cause: err}
		}
		if ic.Pin == nil {
			continue
		}
		if *ic.Pin < 0 {
			return &Error{Message: fmt.Sprintf("instance %d: pin %d is negative", i, *ic.Pin)}
		}
		if prev, dup := pins[*ic.Pin]; dup {
			return &Error{Message: fmt.Sprintf("instance %d: pin %d already used by instance %d", i, *ic.Pin, prev)}
		}
		pins[*ic.Pin] = i
	}
	return nil
}

// ResolveCount returns the instance count: binary_inputs.count if set,
// else the number of listed instances, else the BI variable from getenv.
// Zero means no instances.
func (c *Config) ResolveCount(getenv func(string) string) (uint32, error) {
	if c.BinaryInputs.Count > 0 {
		return c.BinaryInputs.Count, nil
	}
	if n := len(c.BinaryInputs.Instances); n > 0 {
		return uint32(n), nil
	}

	env := getenv(EnvCount)
	if env == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(env, 10, 32)
	if err != nil {
		return 0, &Error{Message: fmt.Sprintf("invalid %s=%q", EnvCount, env), Cause: err}
	}
	if n > bacnet.MaxInstance+1 {
		return 0, &Error{Message: fmt.Sprintf("%s=%d exceeds %d", EnvCount, n, bacnet.MaxInstance+1)}
	}
	return uint32(n), nil
}

// Apply provisions names, polarity and out-of-service onto o.
// Entries past o.Count() are an error.
func (c *Config) Apply(o *binaryinput.Object) error {
	for i, ic := range c.BinaryInputs.Instances {
		id := uint32(i)
		if !o.Valid(id) {
			return &Error{Message: fmt.Sprintf("instance %d is outside the table of %d", i, o.Count())}
		}
		if ic.Name != "" {
			o.SetName(id, ic.Name)
		}
		pol, err := bacnet.ParsePolarity(ic.Polarity)
		if err != nil {
			return &Error{Message: fmt.Sprintf("instance %d", i), Cause: err}
		}
		o.SetPolarity(id, pol)
		o.SetOutOfService(id, ic.OutOfService)
	}
	return nil
}

// Inputs returns the instances that have a GPIO pin, in instance order.
func (c *Config) Inputs() []Input {
	var out []Input
	for i, ic := range c.BinaryInputs.Instances {
		if ic.Pin != nil {
			out = append(out, Input{Instance: uint32(i), Pin: *ic.Pin})
		}
	}
	return out
}

// Pins returns the GPIO offsets of Inputs, in the same order.
func (c *Config) Pins() []int {
	inputs := c.Inputs()
	pins := make([]int, len(inputs))
	for i, in := range inputs {
		pins[i] = in.Pin
	}
	return pins
}
