// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ConfigEnvVar is the environment variable with the default configuration.
//
// The format is "<device>[:<options>]", where "<device>" is "cpu" or "coreml" and "<options>" is
// a comma-separated list of "key=value" pairs. E.g.: "cpu:parallelism=4,min_chunk=2048".
//
// Options:
//
//   - parallelism: maximum number of goroutines used by one operator compute. Values <= 1 run inline.
//   - min_chunk: minimum number of output elements processed by each goroutine.
const ConfigEnvVar = "LAYEREXEC_BACKEND"

// DefaultMinChunk is the default minimum number of output elements per parallel chunk.
const DefaultMinChunk = 4096

// Config of the execution: which device to use, and how much parallelism the operators may use.
type Config struct {
	Device      DeviceKind
	Parallelism int
	MinChunk    int
}

// String implements fmt.Stringer, in the same format parsed by ParseConfig.
func (c Config) String() string {
	return fmt.Sprintf("%s:parallelism=%d,min_chunk=%d", c.Device, c.Parallelism, c.MinChunk)
}

func defaultConfig() Config {
	return Config{
		Device:      DeviceCPU,
		Parallelism: runtime.NumCPU(),
		MinChunk:    DefaultMinChunk,
	}
}

// ParseConfig parses a configuration string, see ConfigEnvVar for the format.
// Options not given take their default values. An empty string returns the default configuration.
func ParseConfig(config string) (Config, error) {
	c := defaultConfig()
	config = strings.TrimSpace(config)
	if config == "" {
		return c, nil
	}
	deviceName, options, _ := strings.Cut(config, ":")
	device, err := DeviceKindString(strings.TrimSpace(deviceName))
	if err != nil || !device.IsValid() {
		return c, errors.Errorf("parsing configuration %q: unknown device %q, valid devices are %v",
			config, deviceName, DeviceKindStrings()[DeviceInvalid+1:DeviceLast])
	}
	c.Device = device
	if options == "" {
		return c, nil
	}
	for _, option := range strings.Split(options, ",") {
		key, value, found := strings.Cut(option, "=")
		if !found {
			return c, errors.Errorf("parsing configuration %q: option %q must be formatted as key=value", config, option)
		}
		key = strings.TrimSpace(key)
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return c, errors.Wrapf(err, "parsing configuration %q: option %q", config, key)
		}
		switch key {
		case "parallelism":
			c.Parallelism = n
		case "min_chunk":
			if n < 1 {
				return c, errors.Errorf("parsing configuration %q: min_chunk must be >= 1, got %d", config, n)
			}
			c.MinChunk = n
		default:
			return c, errors.Errorf("parsing configuration %q: unknown option %q", config, key)
		}
	}
	return c, nil
}

// DefaultConfig returns the configuration given by the environment variable ConfigEnvVar, or
// the default configuration (CPU device, runtime.NumCPU() parallelism) if it's not set.
func DefaultConfig() (Config, error) {
	config, found := os.LookupEnv(ConfigEnvVar)
	if !found {
		return defaultConfig(), nil
	}
	return ParseConfig(config)
}
