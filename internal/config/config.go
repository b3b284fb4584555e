package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeRun = "run"
	ModeMCP = "mcp"

	// Text modes for attachment extraction
	TextModeOCR  = "ocr"
	TextModeAuto = "auto"

	// LLM providers
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"

	// Default values
	DefaultEnvFile        = ".env"
	DefaultDataFile       = "data.json"
	DefaultSummaryFile    = "summary.txt"
	DefaultLogLevel       = "info"
	DefaultMaxFileSize    = 100 * 1024 * 1024 // 100MB
	DefaultLLMModel       = "gemini-2.0-flash"
	DefaultLLMTemperature = 0.3
	DefaultLLMMaxTokens   = 512
	DefaultOCRLanguage    = "eng"
	DefaultOCRDPI         = 300
	DefaultTesseract      = "tesseract"

	envPrefix = "AUDITFORM"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is given.
var ErrVersionRequested = errors.New("version requested")

// LLMConfig configures the summary model.
type LLMConfig struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	Timeout     time.Duration // 0 means no timeout
	GCPProject  string
	GCPLocation string
}

// OCRConfig configures attachment text recovery.
type OCRConfig struct {
	Tesseract   string
	Languages   []string
	DPI         int
	TessdataDir string
	TextMode    string
}

// Config holds all configuration for auditform
type Config struct {
	Mode string // "run" or "mcp"

	// Input and outputs
	Directory   string
	EnvFile     string
	DataFile    string
	SummaryFile string
	XLSXFile    string // empty disables the spreadsheet

	LLM LLMConfig
	OCR OCRConfig

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeRun,
		Directory:   currentDir,
		EnvFile:     DefaultEnvFile,
		DataFile:    DefaultDataFile,
		SummaryFile: DefaultSummaryFile,
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Model:       DefaultLLMModel,
			Temperature: DefaultLLMTemperature,
			MaxTokens:   DefaultLLMMaxTokens,
		},
		OCR: OCRConfig{
			Tesseract: DefaultTesseract,
			Languages: []string{DefaultOCRLanguage},
			DPI:       DefaultOCRDPI,
			TextMode:  TextModeOCR,
		},
		Version:     "1.0.0",
		ServerName:  "auditform",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags, loads the env file with
// override semantics and returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	// Values from the env file replace the process environment before
	// viper resolves any key.
	if err := loadEnvFile(viper.GetString("env-file"), pflag.CommandLine.Changed("env-file")); err != nil {
		return nil, err
	}

	populateConfigFromViper(cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadEnvFile overloads the process environment from path. A missing
// default file is not an error; a missing explicit one is.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// GEMINI_API_KEY is the conventional name; the prefixed form wins.
	_ = viper.BindEnv("llm-api-key", envPrefix+"_LLM_API_KEY", "GEMINI_API_KEY")

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("env-file", cfg.EnvFile)
	viper.SetDefault("data-file", cfg.DataFile)
	viper.SetDefault("summary-file", cfg.SummaryFile)
	viper.SetDefault("xlsx-file", cfg.XLSXFile)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("llm-provider", cfg.LLM.Provider)
	viper.SetDefault("llm-model", cfg.LLM.Model)
	viper.SetDefault("llm-temperature", cfg.LLM.Temperature)
	viper.SetDefault("llm-max-tokens", cfg.LLM.MaxTokens)
	viper.SetDefault("llm-base-url", cfg.LLM.BaseURL)
	viper.SetDefault("llm-timeout", cfg.LLM.Timeout)
	viper.SetDefault("gcp-project", cfg.LLM.GCPProject)
	viper.SetDefault("gcp-location", cfg.LLM.GCPLocation)
	viper.SetDefault("ocr-tesseract", cfg.OCR.Tesseract)
	viper.SetDefault("ocr-lang", strings.Join(cfg.OCR.Languages, ","))
	viper.SetDefault("ocr-dpi", cfg.OCR.DPI)
	viper.SetDefault("ocr-tessdata", cfg.OCR.TessdataDir)
	viper.SetDefault("text-mode", cfg.OCR.TextMode)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Mode: 'run' processes the first PDF in --dir, 'mcp' serves MCP tools over stdio")
	pflag.String("dir", cfg.Directory, "Directory containing the form PDF")
	pflag.String("env-file", cfg.EnvFile, "Environment file loaded with override semantics")
	pflag.String("data-file", cfg.DataFile, "Structured data output file")
	pflag.String("summary-file", cfg.SummaryFile, "Summary output file")
	pflag.String("xlsx-file", cfg.XLSXFile, "Optional spreadsheet export of the structured data")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("llm-provider", cfg.LLM.Provider, "Language model provider (gemini, vertex)")
	pflag.String("llm-model", cfg.LLM.Model, "Language model name")
	pflag.Float64("llm-temperature", cfg.LLM.Temperature, "Sampling temperature")
	pflag.Int("llm-max-tokens", cfg.LLM.MaxTokens, "Maximum output tokens per summary")
	pflag.String("llm-base-url", cfg.LLM.BaseURL, "Gemini API base URL override")
	pflag.Duration("llm-timeout", cfg.LLM.Timeout, "Timeout per model call (0 = none)")
	pflag.String("gcp-project", cfg.LLM.GCPProject, "Google Cloud project (vertex provider)")
	pflag.String("gcp-location", cfg.LLM.GCPLocation, "Google Cloud location (vertex provider)")
	pflag.String("ocr-tesseract", cfg.OCR.Tesseract, "Tesseract binary")
	pflag.String("ocr-lang", strings.Join(cfg.OCR.Languages, ","), "Comma-separated OCR languages")
	pflag.Int("ocr-dpi", cfg.OCR.DPI, "Rasterization resolution for attachment pages")
	pflag.String("ocr-tessdata", cfg.OCR.TessdataDir, "Tesseract tessdata directory")
	pflag.String("text-mode", cfg.OCR.TextMode, "Attachment text: 'ocr' always OCRs, 'auto' prefers the text layer")
}

var flagNames = []string{
	"mode", "dir", "env-file", "data-file", "summary-file", "xlsx-file",
	"loglevel", "maxfilesize",
	"llm-provider", "llm-model", "llm-temperature", "llm-max-tokens", "llm-base-url", "llm-timeout",
	"gcp-project", "gcp-location",
	"ocr-tesseract", "ocr-lang", "ocr-dpi", "ocr-tessdata", "text-mode",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nauditform - extract Form ADT-1 data and summaries from a PDF\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # process the first PDF in the current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/filing    # process a different directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --text-mode=auto         # OCR only pages without a text layer\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=mcp               # serve MCP tools over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY            Gemini API key\n")
		fmt.Fprintf(os.Stderr, "  AUDITFORM_<FLAG>          Any flag, upper-cased with '-' as '_'\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Directory = viper.GetString("dir")
	cfg.EnvFile = viper.GetString("env-file")
	cfg.DataFile = viper.GetString("data-file")
	cfg.SummaryFile = viper.GetString("summary-file")
	cfg.XLSXFile = viper.GetString("xlsx-file")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.Temperature = viper.GetFloat64("llm-temperature")
	cfg.LLM.MaxTokens = viper.GetInt("llm-max-tokens")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	cfg.LLM.Timeout = viper.GetDuration("llm-timeout")
	cfg.LLM.GCPProject = viper.GetString("gcp-project")
	cfg.LLM.GCPLocation = viper.GetString("gcp-location")

	cfg.OCR.Tesseract = viper.GetString("ocr-tesseract")
	cfg.OCR.Languages = splitList(viper.GetString("ocr-lang"))
	cfg.OCR.DPI = viper.GetInt("ocr-dpi")
	cfg.OCR.TessdataDir = viper.GetString("ocr-tessdata")
	cfg.OCR.TextMode = viper.GetString("text-mode")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeRun && c.Mode != ModeMCP {
		return errors.New("mode must be either 'run' or 'mcp'")
	}

	if c.Directory == "" {
		return errors.New("directory cannot be empty")
	}
	info, err := os.Stat(c.Directory)
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", c.Directory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", c.Directory)
	}

	if c.DataFile == "" || c.SummaryFile == "" {
		return errors.New("data and summary file names cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	switch c.LLM.Provider {
	case ProviderGemini:
	case ProviderVertex:
		if c.LLM.GCPProject == "" || c.LLM.GCPLocation == "" {
			return errors.New("vertex provider requires gcp-project and gcp-location")
		}
	default:
		return fmt.Errorf("invalid llm provider: %s (must be one of: gemini, vertex)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm model cannot be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm max tokens must be positive")
	}
	if c.LLM.Timeout < 0 {
		return errors.New("llm timeout cannot be negative")
	}

	if len(c.OCR.Languages) == 0 {
		return errors.New("at least one OCR language is required")
	}
	if c.OCR.DPI < 72 || c.OCR.DPI > 1200 {
		return errors.New("ocr dpi must be between 72 and 1200")
	}
	if c.OCR.TextMode != TextModeOCR && c.OCR.TextMode != TextModeAuto {
		return fmt.Errorf("invalid text mode: %s (must be one of: ocr, auto)", c.OCR.TextMode)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsMCPMode returns true when serving MCP tools over stdio
func (c *Config) IsMCPMode() bool {
	return c.Mode == ModeMCP
}

// String returns a string representation of the configuration. The API
// key is never printed.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Directory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"LLM: %s/%s, APIKeySet: %t, TextMode: %s, OCRLanguages: %s}",
		c.Mode, c.Directory, c.LogLevel, c.MaxFileSize,
		c.LLM.Provider, c.LLM.Model, c.LLM.APIKey != "", c.OCR.TextMode, strings.Join(c.OCR.Languages, "+"))
}
