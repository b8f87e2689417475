package config

import (
	stdlibErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueErrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration, loaded from cohort.yml
// and environment variables.
type Config struct {
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	Data    DataConfig    `yaml:"data" json:"data"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// EngineConfig matches the 'engine' section of cohort.yml.
type EngineConfig struct {
	Algorithm  string `yaml:"algorithm" json:"algorithm" cue:"algorithm"`
	KMax       int    `yaml:"k_max" json:"k_max" cue:"k_max"`
	MaxIter    int    `yaml:"max_iter" json:"max_iter" cue:"max_iter"`
	Restarts   int    `yaml:"restarts" json:"restarts" cue:"restarts"`
	SeedStride int64  `yaml:"seed_stride" json:"seed_stride" cue:"seed_stride"`
	TopTerms   int    `yaml:"top_terms" json:"top_terms" cue:"top_terms"`
}

// DataConfig matches the 'data' section: where batch runs find survey
// definitions and answer files.
type DataConfig struct {
	SurveyDir string   `yaml:"survey_dir" json:"survey_dir" cue:"survey_dir"`
	Include   []string `yaml:"include" json:"include" cue:"include"`
	Exclude   []string `yaml:"exclude" json:"exclude" cue:"exclude"`
	Delimiter string   `yaml:"delimiter" json:"delimiter" cue:"delimiter"`
}

// StorageConfig matches the 'storage' section.
type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver" cue:"driver"` // "memory" or "sqlite"
	Path   string `yaml:"path" json:"path" cue:"path"`
}

// ServerConfig matches the 'server' section of cohort.yml.
type ServerConfig struct {
	Host       string     `yaml:"host" json:"host" cue:"host"`
	Port       int        `yaml:"port" json:"port" cue:"port"`
	ClusterQPS float64    `yaml:"cluster_qps" json:"cluster_qps" cue:"cluster_qps"`
	Auth       AuthConfig `yaml:"auth" json:"auth" cue:"auth"`
}

// AuthConfig matches the 'auth' sub-section of 'server'.
type AuthConfig struct {
	Type     string `yaml:"type" json:"type" cue:"type"`
	TokenEnv string `yaml:"token_env" json:"token_env" cue:"token_env"`
}

// ErrUnknownField is a custom error type for unknown configuration fields.
type ErrUnknownField struct {
	Err error
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field in configuration: %v", e.Err)
}

func (e *ErrUnknownField) Unwrap() error {
	return e.Err
}

// DefaultConfigPath is the default path for the configuration file.
const DefaultConfigPath = "cohort.yml"

// expandWithDefault expands a string like "${VAR:=default_value}" or "$VAR".
// If VAR is set, its value is used. Otherwise, default_value is used.
// Standard $VAR or ${VAR} without default is also handled by os.ExpandEnv.
var envVarWithDefaultRegex = regexp.MustCompile(`\$\{([^:}]+):=([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

func expandWithDefault(s string) string {
	result := envVarWithDefaultRegex.ReplaceAllStringFunc(s, func(match string) string {
		expandedSimple := os.ExpandEnv(match)
		if expandedSimple != match && expandedSimple != "" && !strings.Contains(expandedSimple, ":=") {
			return expandPath(expandedSimple)
		}

		parts := envVarWithDefaultRegex.FindStringSubmatch(match)
		var varName, defaultValue string

		if len(parts) > 2 && parts[1] != "" && parts[2] != "" { // ${VAR:=default} form
			varName = parts[1]
			defaultValue = parts[2]
		} else if len(parts) > 4 && (parts[3] != "" || parts[4] != "") { // $VAR or ${VAR} form
			varName = parts[3] + parts[4]
			val, _ := os.LookupEnv(varName)
			return expandPath(val)
		} else {
			return expandPath(match)
		}

		value, exists := os.LookupEnv(varName)
		if exists {
			return expandPath(value)
		}

		expandedDefaultValue := expandWithDefault(defaultValue)
		return expandPath(expandedDefaultValue)
	})
	return result
}

// Load reads the YAML configuration and validates it against the CUE schema.
// An empty cueSchemaPath uses the schema compiled into the binary.
func Load(configPath string, cueSchemaPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	schemaBytes := embeddedCueSchema
	if cueSchemaPath != "" {
		external, err := os.ReadFile(cueSchemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CUE schema file %s: %w", cueSchemaPath, err)
		}
		schemaBytes = external
	}

	yamlData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(yamlData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML data from %s: %w", configPath, err)
	}

	// The struct unmarshal silently drops keys the Config type does not
	// declare, so unknown-field detection has to look at the raw document.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML data from %s: %w", configPath, err)
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename("config_schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE schema: %w", err)
	}

	cueVal := ctx.Encode(cfg)
	if err := cueVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode config struct to CUE value: %w", err)
	}

	configDef := schemaVal.LookupPath(cue.ParsePath("#Config"))
	if !configDef.Exists() {
		return nil, fmt.Errorf("#Config definition not found in CUE schema")
	}

	rawVal := ctx.Encode(raw)
	if err := rawVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode raw config to CUE value: %w", err)
	}
	if err := configDef.Unify(rawVal).Validate(); err != nil {
		if unknown := asUnknownField(err); unknown != nil {
			return nil, unknown
		}
		return nil, fmt.Errorf("failed to unify CUE #Config definition with config data from %s: %w", configPath, err)
	}

	instanceVal := configDef.Unify(cueVal)
	if err := instanceVal.Err(); err != nil {
		if unknown := asUnknownField(err); unknown != nil {
			return nil, unknown
		}
		return nil, fmt.Errorf("failed to unify CUE #Config definition with config data from %s: %w", configPath, err)
	}

	if err := instanceVal.Validate(cue.Concrete(true)); err != nil {
		if unknown := asUnknownField(err); unknown != nil {
			return nil, unknown
		}
		return nil, fmt.Errorf("CUE validation failed for %s: %w", configPath, err)
	}

	cfg.Data.SurveyDir = expandWithDefault(cfg.Data.SurveyDir)
	cfg.Storage.Path = expandWithDefault(cfg.Storage.Path)

	return &cfg, nil
}

// asUnknownField detects the CUE "field not allowed" family of failures,
// which callers treat differently (exit 78) from plain validation errors.
func asUnknownField(err error) *ErrUnknownField {
	var cueErrList cueErrors.Error
	if stdlibErrors.As(err, &cueErrList) {
		for _, single := range cueErrors.Errors(cueErrList) {
			details := cueErrors.Details(single, nil)
			if strings.Contains(details, "field not allowed") ||
				strings.Contains(details, "is not a field in") {
				return &ErrUnknownField{Err: err}
			}
		}
	}
	return nil
}

// GetDefaultConfig returns a Config struct populated with default values.
func GetDefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Algorithm:  "LLOYD",
			KMax:       6,
			MaxIter:    100,
			Restarts:   10,
			SeedStride: 1000,
			TopTerms:   8,
		},
		Data: DataConfig{
			SurveyDir: "surveys",
			Include:   []string{"answers/**/*.csv", "answers/**/*.json", "answers/**/*.xlsx"},
			Exclude:   []string{".git/**", "node_modules/**"},
			Delimiter: ",",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "${COHORT_DATA_DIR:=~/.local/share/cohort}/results.db",
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8282,
			ClusterQPS: 2,
			Auth: AuthConfig{
				Type:     "token",
				TokenEnv: "COHORT_TOKENS",
			},
		},
	}
}

// WriteDefaultConfig writes the default configuration to the specified path.
// If the path is empty, it uses DefaultConfigPath.
func WriteDefaultConfig(configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg := GetDefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for config file %s: %w", configPath, err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config to %s: %w", configPath, err)
	}
	return nil
}
