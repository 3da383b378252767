package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: ROWPIPE_STORAGE__DB__DSN sets storage.db.dsn.
const EnvPrefix = "ROWPIPE_"

// Defaults applied before the file and environment layers.
var defaults = map[string]any{
	"source.kind":          "csv",
	"source.header":        "present",
	"source.comma":         ",",
	"transforms":           "default",
	"runtime.batch_size":   5000,
	"runtime.notify_every": 10000,
	"runtime.sample_rows":  1000,
	"runtime.parallelism":  4,
	"metrics.backend":      "none",
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"job":             "job",
	"source":          "source.location",
	"table":           "storage.db.table",
	"dsn":             "storage.db.dsn",
	"batch-size":      "runtime.batch_size",
	"metrics-backend": "metrics.backend",
}

// Load reads the pipeline at path (YAML or JSON) on top of the defaults and
// applies ROWPIPE_* environment overrides.
func Load(path string) (Pipeline, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load plus a final layer of explicitly set flags from fs
// whose names appear in FlagKeys.
func LoadWithFlags(path string, fs *pflag.FlagSet) (Pipeline, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Pipeline{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Pipeline{}, fmt.Errorf("config: load env: %w", err)
	}
	if fs != nil {
		err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil)
		if err != nil {
			return Pipeline{}, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var p Pipeline
	if err := k.Unmarshal("", &p); err != nil {
		return Pipeline{}, fmt.Errorf("config: decode: %w", err)
	}
	for i := range p.Steps {
		if p.Steps[i].Options == nil {
			p.Steps[i].Options = Options{}
		}
	}
	return p, nil
}

// envKey maps ROWPIPE_RUNTIME__BATCH_SIZE to runtime.batch_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// LoadEnvFile sets the variables in a dotenv file, replacing values already
// in the environment, so ROWPIPE_* overrides can live next to the pipeline.
func LoadEnvFile(path string) error {
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}
