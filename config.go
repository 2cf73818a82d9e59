package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gamma-omg/rag-themes/docstore"
	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/gamma-omg/rag-themes/readers"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ModelConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	ApiKey    string `yaml:"api_key"`
	ApiKeyEnv string `yaml:"api_key_env"`
}

type Config struct {
	LogFile       string `yaml:"log"`
	DocRoot       string `yaml:"doc_root"`
	MergeEventsMs int    `yaml:"write_debounce_ms"`
	ServerAddr    string `yaml:"server_addr"`
	Extract       struct {
		// 0 disables OCR of pdf pages that have any text layer at all
		MinTextChars *int   `yaml:"min_text_chars"`
		OCRDPI       int    `yaml:"ocr_dpi"`
		PageTimeoutS int    `yaml:"page_timeout_s"`
		Pdftoppm     string `yaml:"pdftoppm"`
	} `yaml:"extract"`
	OCR struct {
		Engine          string   `yaml:"engine"`
		Languages       []string `yaml:"languages"`
		CredentialsFile string   `yaml:"credentials_file"`
	} `yaml:"ocr"`
	Store struct {
		Type        string `yaml:"type"`
		ChromaAddr  string `yaml:"chroma_addr"`
		Collection  string `yaml:"collection"`
		RequestSize int    `yaml:"request_size"`
	} `yaml:"store"`
	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`
	OpenAI *EmbeddingConfig `yaml:"open_ai"`
	Gemini *EmbeddingConfig `yaml:"gemini"`
	LLM    struct {
		BaseURL           string      `yaml:"base_url"`
		ApiKey            string      `yaml:"api_key"`
		ApiKeyEnv         string      `yaml:"api_key_env"`
		TimeoutS          int         `yaml:"timeout_s"`
		RequestsPerMinute int         `yaml:"requests_per_minute"`
		Stage1            ModelConfig `yaml:"stage1"`
		Stage2            ModelConfig `yaml:"stage2"`
	} `yaml:"llm"`
	Synth struct {
		Workers int `yaml:"workers"`
	} `yaml:"synth"`
}

const (
	storeChroma = "chroma"
	storeMemory = "memory"

	ocrTesseract = "tesseract"
	ocrVision    = "vision"
)

func readConfig(cfgPath string) (*Config, error) {
	// a missing .env is fine, keys may come from the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env: %w", err)
	}

	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.resolveKeys()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DocRoot == "" {
		c.DocRoot = "docs"
	}
	if c.MergeEventsMs <= 0 {
		c.MergeEventsMs = 500
	}
	if c.ServerAddr == "" {
		c.ServerAddr = "localhost:8080"
	}

	if c.Extract.MinTextChars == nil {
		c.Extract.MinTextChars = ptr(readers.DefaultMinTextChars)
	}
	if c.Extract.OCRDPI <= 0 {
		c.Extract.OCRDPI = readers.DefaultOCRDPI
	}
	if c.Extract.PageTimeoutS <= 0 {
		c.Extract.PageTimeoutS = 120
	}

	if c.OCR.Engine == "" {
		c.OCR.Engine = ocrTesseract
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"eng"}
	}

	if c.Store.Type == "" {
		c.Store.Type = storeChroma
	}
	if c.Store.ChromaAddr == "" {
		c.Store.ChromaAddr = "http://localhost:8000"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = docstore.DefaultCollection
	}
	if c.Store.RequestSize <= 0 {
		c.Store.RequestSize = 8000
	}

	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = pipeline.DefaultTopK
	}

	if c.OpenAI != nil && c.OpenAI.ApiKeyEnv == "" {
		c.OpenAI.ApiKeyEnv = "OPENAI_API_KEY"
	}
	if c.Gemini != nil && c.Gemini.ApiKeyEnv == "" {
		c.Gemini.ApiKeyEnv = "GEMINI_API_KEY"
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.ApiKeyEnv == "" {
		c.LLM.ApiKeyEnv = "GROQ_API_KEY"
	}
	if c.LLM.TimeoutS <= 0 {
		c.LLM.TimeoutS = 120
	}
	if c.LLM.Stage1.Model == "" {
		c.LLM.Stage1.Model = "llama3-8b-8192"
	}
	if c.LLM.Stage1.Temperature == nil {
		c.LLM.Stage1.Temperature = ptr(0.0)
	}
	if c.LLM.Stage2.Model == "" {
		c.LLM.Stage2.Model = "llama3-70b-8192"
	}
	if c.LLM.Stage2.Temperature == nil {
		c.LLM.Stage2.Temperature = ptr(0.1)
	}

	if c.Synth.Workers <= 0 {
		c.Synth.Workers = 1
	}
}

func (c *Config) resolveKeys() {
	for _, e := range []*EmbeddingConfig{c.OpenAI, c.Gemini} {
		if e != nil && e.ApiKey == "" {
			e.ApiKey = os.Getenv(e.ApiKeyEnv)
		}
	}

	if c.LLM.ApiKey == "" {
		c.LLM.ApiKey = os.Getenv(c.LLM.ApiKeyEnv)
	}
}

func (c *Config) validate() error {
	switch c.Store.Type {
	case storeChroma:
		if c.OpenAI == nil && c.Gemini == nil {
			return errors.New("chroma store needs an open_ai or gemini embeddings section")
		}
	case storeMemory:
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	switch c.OCR.Engine {
	case ocrTesseract, ocrVision:
	default:
		return fmt.Errorf("unknown ocr engine %q", c.OCR.Engine)
	}

	if *c.Extract.MinTextChars < 0 {
		return fmt.Errorf("extract.min_text_chars must not be negative, got %d", *c.Extract.MinTextChars)
	}

	return nil
}

func (c *Config) pageTimeout() time.Duration {
	return time.Duration(c.Extract.PageTimeoutS) * time.Second
}

func (c *Config) debounce() time.Duration {
	return time.Duration(c.MergeEventsMs) * time.Millisecond
}

func ptr[T any](v T) *T {
	return &v
}
