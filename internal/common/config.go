package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Batch   BatchConfig   `yaml:"batch"`
	OCR     OCRConfig     `yaml:"ocr"`
	LLM     LLMConfig     `yaml:"llm"`
	Sink    SinkConfig    `yaml:"sink"`
	Archive ArchiveConfig `yaml:"archive"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr    string `yaml:"httpAddr"`
	GRPCAddr    string `yaml:"grpcAddr"`
	LogLevel    string `yaml:"logLevel"`
	MaxUploadMB int    `yaml:"maxUploadMB"`
}

// BatchConfig controls the per-request orchestrator.
type BatchConfig struct {
	TmpDir         string        `yaml:"tmpDir"`
	ReportFailures bool          `yaml:"reportFailures"`
	DocTimeout     time.Duration `yaml:"docTimeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string `yaml:"tesseract"`
	Pdftoppm      string `yaml:"pdftoppm"`
	TesseractLang string `yaml:"lang"`
	TessdataDir   string `yaml:"tessdataDir"`
	DPI           int    `yaml:"dpi"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider         string        `yaml:"provider"` // openai | langchain | vertex
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"-"`
	BaseURL          string        `yaml:"baseURL"`
	Timeout          time.Duration `yaml:"timeout"`
	JSONMode         bool          `yaml:"jsonMode"`
	LangchainBackend string        `yaml:"langchainBackend"` // openai | ollama
	OllamaURL        string        `yaml:"ollamaURL"`
	VertexProject    string        `yaml:"vertexProject"`
	VertexLocation   string        `yaml:"vertexLocation"`

	// USD per million tokens; zero means "use the built-in price table".
	PromptCostPer1M     float64 `yaml:"promptCostPer1M"`
	CompletionCostPer1M float64 `yaml:"completionCostPer1M"`
}

// SinkConfig selects where processed rows are appended.
type SinkConfig struct {
	Kind            string `yaml:"kind"` // sheets | xlsx | sql | memory
	SpreadsheetName string `yaml:"spreadsheetName"`
	SpreadsheetID   string `yaml:"spreadsheetID"`
	CredentialsJSON string `yaml:"-"`
	XLSXPath        string `yaml:"xlsxPath"`
	DBDriver        string `yaml:"dbDriver"` // postgres | sqlite | mysql
	DBURL           string `yaml:"-"`
	DBTable         string `yaml:"dbTable"`
}

// ArchiveConfig enables copying originals to a GCS bucket.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:    ":8080",
			GRPCAddr:    ":9090",
			LogLevel:    "info",
			MaxUploadMB: 32,
		},
		Batch: BatchConfig{
			TmpDir:         os.TempDir(),
			ReportFailures: true,
		},
		OCR: OCRConfig{
			Tesseract:     "tesseract",
			Pdftoppm:      "pdftoppm",
			TesseractLang: "eng",
			DPI:           300,
		},
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			Timeout:          60 * time.Second,
			LangchainBackend: "openai",
			OllamaURL:        "http://localhost:11434",
			VertexLocation:   "us-central1",
		},
		Sink: SinkConfig{
			Kind:            "sheets",
			SpreadsheetName: "Entities",
			XLSXPath:        "entities.xlsx",
			DBDriver:        "postgres",
			DBTable:         "entities",
		},
		Archive: ArchiveConfig{
			Prefix: "uploads",
		},
	}
}

// LoadConfig loads configuration from CONFIG_FILE (if set) and then environment
// variables. Environment always wins over the file.
func LoadConfig() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "reading "+path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)

	c.Batch.TmpDir = getEnv("TMP_DIR", c.Batch.TmpDir)
	c.Batch.ReportFailures = getEnvAsBool("REPORT_FAILURES", c.Batch.ReportFailures)
	c.Batch.DocTimeout = getEnvAsDuration("BATCH_DOC_TIMEOUT", c.Batch.DocTimeout)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.JSONMode = getEnvAsBool("LLM_JSON_MODE", c.LLM.JSONMode)
	c.LLM.LangchainBackend = strings.ToLower(getEnv("LANGCHAIN_BACKEND", c.LLM.LangchainBackend))
	c.LLM.OllamaURL = getEnv("OLLAMA_URL", c.LLM.OllamaURL)
	c.LLM.VertexProject = getEnv("VERTEX_PROJECT", c.LLM.VertexProject)
	c.LLM.VertexLocation = getEnv("VERTEX_LOCATION", c.LLM.VertexLocation)
	c.LLM.PromptCostPer1M = getEnvAsFloat64("LLM_PROMPT_COST_PER_1M", c.LLM.PromptCostPer1M)
	c.LLM.CompletionCostPer1M = getEnvAsFloat64("LLM_COMPLETION_COST_PER_1M", c.LLM.CompletionCostPer1M)

	c.Sink.Kind = strings.ToLower(getEnv("SINK", c.Sink.Kind))
	c.Sink.SpreadsheetName = getEnv("SPREADSHEET_NAME", c.Sink.SpreadsheetName)
	c.Sink.SpreadsheetID = getEnv("SPREADSHEET_ID", c.Sink.SpreadsheetID)
	c.Sink.CredentialsJSON = getEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", c.Sink.CredentialsJSON)
	c.Sink.XLSXPath = getEnv("XLSX_PATH", c.Sink.XLSXPath)
	c.Sink.DBDriver = strings.ToLower(getEnv("DB_DRIVER", c.Sink.DBDriver))
	c.Sink.DBURL = getEnv("DB_URL", c.Sink.DBURL)
	c.Sink.DBTable = getEnv("DB_TABLE", c.Sink.DBTable)

	c.Archive.Bucket = getEnv("ARCHIVE_BUCKET", c.Archive.Bucket)
	c.Archive.Prefix = getEnv("ARCHIVE_PREFIX", c.Archive.Prefix)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings needed to serve requests. Missing model or sink
// credentials are reported here so the process refuses to start.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	v.Field("LLM_PROVIDER", c.LLM.Provider, OneOf("openai", "langchain", "vertex"))
	v.Field("LLM_MODEL", c.LLM.Model, Required)
	if c.NeedsOpenAIKey() {
		v.Field("OPENAI_API_KEY", c.LLM.APIKey, Required)
	}
	if c.LLM.Provider == "langchain" {
		v.Field("LANGCHAIN_BACKEND", c.LLM.LangchainBackend, OneOf("openai", "ollama"))
	}
	if c.LLM.Provider == "vertex" {
		v.Field("VERTEX_PROJECT", c.LLM.VertexProject, Required)
	}
	v.Field("SINK", c.Sink.Kind, OneOf("sheets", "xlsx", "sql", "memory"))
	return c.validateSink(v)
}

// ValidateSink checks only the sink settings (used by tools that never call a model).
func (c *Config) ValidateSink() error {
	v := NewValidator()
	v.Field("SINK", c.Sink.Kind, OneOf("sheets", "xlsx", "sql", "memory"))
	return c.validateSink(v)
}

func (c *Config) validateSink(v *Validator) error {
	switch c.Sink.Kind {
	case "sheets":
		v.Field("GOOGLE_APPLICATION_CREDENTIALS_JSON", c.Sink.CredentialsJSON, Required, JSONObject)
		if c.Sink.SpreadsheetID == "" {
			v.Field("SPREADSHEET_NAME", c.Sink.SpreadsheetName, Required)
		}
	case "xlsx":
		v.Field("XLSX_PATH", c.Sink.XLSXPath, Required)
	case "sql":
		v.Field("DB_URL", c.Sink.DBURL, Required)
		v.Field("DB_DRIVER", c.Sink.DBDriver, OneOf("postgres", "sqlite", "mysql"))
		v.Field("DB_TABLE", c.Sink.DBTable, Required, SQLIdentifier)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// NeedsOpenAIKey reports whether the selected provider talks to OpenAI.
func (c *Config) NeedsOpenAIKey() bool {
	switch c.LLM.Provider {
	case "openai":
		return true
	case "langchain":
		return c.LLM.LangchainBackend == "openai"
	}
	return false
}
