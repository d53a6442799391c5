// Package detectors - Batch runner configuration and the Detector that feeds
// raw detector output through the rotated-box detection stage.
package detectors

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/logger"
	"github.com/nvr-ai/go-rdetect/models/rdetection"
)

// EnvPrefix prefixes environment overrides. Nested keys are joined with a
// double underscore: RDETECT_MODEL__NUM_CLASSES sets model.num_classes.
const EnvPrefix = "RDETECT_"

// DefaultOutputScale converts normalized coordinates to pixels in saved
// detection files.
const DefaultOutputScale float32 = 300

// SaveOutput configures the optional per-image detection text files.
type SaveOutput struct {
	// OutputDirectory receives the files; empty disables saving.
	OutputDirectory string `json:"output_directory" yaml:"output_directory"`
	// OutputNamePrefix is prepended to the running file counter.
	OutputNamePrefix string `json:"output_name_prefix" yaml:"output_name_prefix"`
	// OutputScale multiplies the box coordinates written to the files.
	OutputScale float32 `json:"output_scale" yaml:"output_scale"`
}

// Enabled reports whether detection files should be written.
func (s SaveOutput) Enabled() bool {
	return s.OutputDirectory != ""
}

// Config represents the configuration of a detection output run.
type Config struct {
	// Model holds the detection output parameters.
	Model rdetection.Params `json:"model" yaml:"model"`

	// SaveOutput controls the optional detection files.
	SaveOutput SaveOutput `json:"save_output" yaml:"save_output"`

	// Log configures the process logger.
	Log logger.Options `json:"log" yaml:"log"`
}

// DefaultConfig returns the configuration used for every key a file or the
// environment leaves unset. num_classes has no default and must be provided.
//
// Returns:
//   - Config: Default configuration
//
// @example
// config := DefaultConfig()
// config.Model.NumClasses = 21
// detector, err := NewDetector(config)
func DefaultConfig() Config {
	return Config{
		Model: rdetection.DefaultParams(),
		SaveOutput: SaveOutput{
			OutputScale: DefaultOutputScale,
		},
		Log: logger.Options{Level: "info"},
	}
}

// defaults flattens DefaultConfig into koanf keys.
func defaults() map[string]any {
	c := DefaultConfig()
	return map[string]any{
		"model.num_classes":                c.Model.NumClasses,
		"model.background_label_id":        c.Model.BackgroundLabelID,
		"model.share_location":             c.Model.ShareLocation,
		"model.code_type":                  string(c.Model.CodeType),
		"model.variance_encoded_in_target": c.Model.VarianceEncodedInTarget,
		"model.regress_size":               c.Model.RegressSize,
		"model.regress_angle":              c.Model.RegressAngle,
		"model.prior_width":                c.Model.PriorWidth,
		"model.prior_height":               c.Model.PriorHeight,
		"model.confidence_threshold":       c.Model.ConfidenceThreshold,
		"model.nms_threshold":              c.Model.NMSThreshold,
		"model.eta":                        c.Model.Eta,
		"model.top_k":                      c.Model.TopK,
		"model.keep_top_k":                 c.Model.KeepTopK,
		"model.workers":                    c.Model.Workers,
		"model.nms_workers":                c.Model.NMSWorkers,
		"save_output.output_directory":     c.SaveOutput.OutputDirectory,
		"save_output.output_name_prefix":   c.SaveOutput.OutputNamePrefix,
		"save_output.output_scale":         c.SaveOutput.OutputScale,
		"log.level":                        c.Log.Level,
		"log.development":                  c.Log.Development,
	}
}

// envKey maps RDETECT_SAVE_OUTPUT__OUTPUT_DIRECTORY to
// save_output.output_directory.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig layers the defaults, the yaml file at path (skipped when path
// is empty) and RDETECT_ environment variables, then validates the result.
//
// Arguments:
//   - path: Path to a yaml config file, or "".
//
// Returns:
//   - Config: The merged configuration.
//   - error: A load, decode or validation error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, errors.Wrap(err, "loading defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "loading %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, errors.Wrap(err, "loading environment")
	}

	var c Config
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the model params and the output settings.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.SaveOutput.Enabled() && c.SaveOutput.OutputScale <= 0 {
		return errors.Wrapf(rdetection.ErrInvalidConfig,
			"output_scale must be positive, got %f", c.SaveOutput.OutputScale)
	}
	return nil
}
