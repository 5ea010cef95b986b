package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	General  GeneralConfig  `toml:"general"`
	Market   MarketConfig   `toml:"market"`
	Costs    CostConfig     `toml:"costs"`
	Scrape   ScrapeConfig   `toml:"scrape"`
	NLP      NLPConfig      `toml:"nlp"`
	Analysis AnalysisConfig `toml:"analysis"`
	Classify ClassifyConfig `toml:"classify"`
}

type GeneralConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
}

// MarketConfig drives the time-series fetch. Symbols maps the logical
// instrument name (which is also the storage column) to the provider symbol.
type MarketConfig struct {
	BaseURL       string            `toml:"base_url"`
	APIKey        string            `toml:"api_key"`
	Symbols       map[string]string `toml:"symbols"`
	Lookback      string            `toml:"lookback"`
	Retries       int               `toml:"retries"`
	RetryDelay    Duration          `toml:"retry_delay"`
	FillLimitDays int               `toml:"fill_limit_days"`
}

// CostConfig holds the refining economics assumptions.
type CostConfig struct {
	// NatGasIntensity is MMBtu of natural gas burned per barrel of crude
	// processed; multiplied by the gas price to get variable opex.
	NatGasIntensity float64 `toml:"nat_gas_intensity"`
	// FixedOpex covers labor, maintenance and catalysts, in $/bbl.
	FixedOpex float64 `toml:"fixed_opex"`
}

type ScrapeConfig struct {
	WeeklyBaseURL  string   `toml:"weekly_base_url"`
	WeeklyStart    string   `toml:"weekly_start"`
	WeeklyEnd      string   `toml:"weekly_end"`
	ArchiveURL     string   `toml:"archive_url"`
	ArchiveBaseURL string   `toml:"archive_base_url"`
	LinkKeywords   []string `toml:"link_keywords"`
	// AllowedYears restricts archive articles to these publication years.
	// Empty means the current and previous calendar year.
	AllowedYears []int    `toml:"allowed_years"`
	Retries      uint64   `toml:"retries"`
	Timeout      Duration `toml:"timeout"`
	FetchDelay   Duration `toml:"fetch_delay"`
	UserAgent    string   `toml:"user_agent"`
}

type NLPConfig struct {
	BullishTerms    []string `toml:"bullish_terms"`
	BearishTerms    []string `toml:"bearish_terms"`
	DomainStopwords []string `toml:"domain_stopwords"`
	Topics          int      `toml:"topics"`
	MaxVocabulary   int      `toml:"max_vocabulary"`
	MinDocFreq      int      `toml:"min_doc_freq"`
	MaxDocFreqRatio float64  `toml:"max_doc_freq_ratio"`
}

type AnalysisConfig struct {
	ToleranceDays int     `toml:"tolerance_days"`
	MaxLag        int     `toml:"max_lag"`
	Alpha         float64 `toml:"alpha"`
	CorrWindow    int     `toml:"corr_window"`
	CorrMinPeriod int     `toml:"corr_min_period"`
}

// ClassifyConfig points at the external sentiment classifier used by the
// dashboard feed. An empty endpoint disables the calls entirely.
type ClassifyConfig struct {
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

// Duration wraps time.Duration for TOML unmarshaling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/crackwatch.db",
			LogLevel: "info",
		},
		Market: MarketConfig{
			BaseURL: "https://eodhistorical.example.com/api",
			Symbols: map[string]string{
				"crude_oil":   "CL=F",
				"gasoline":    "RB=F",
				"heating_oil": "HO=F",
				"natural_gas": "NG=F",
				"valero":      "VLO",
				"phillips66":  "PSX",
			},
			Lookback:      "5y",
			Retries:       3,
			RetryDelay:    Duration{1 * time.Second},
			FillLimitDays: 3,
		},
		Costs: CostConfig{
			NatGasIntensity: 0.45,
			FixedOpex:       6.00,
		},
		Scrape: ScrapeConfig{
			WeeklyBaseURL:  "https://www.eia.gov/petroleum/weekly/archive",
			WeeklyStart:    "2022-01-01",
			WeeklyEnd:      "2023-12-31",
			ArchiveURL:     "https://www.eia.gov/todayinenergy/archive.php",
			ArchiveBaseURL: "https://www.eia.gov/todayinenergy/",
			LinkKeywords:   []string{"petroleum", "crude", "refin"},
			Retries:        2,
			Timeout:        Duration{30 * time.Second},
			FetchDelay:     Duration{1 * time.Second},
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		NLP: NLPConfig{
			BullishTerms: []string{
				"tight supply", "strong margins", "inventory draw",
				"crack spread widening", "strong demand", "refinery outage",
			},
			BearishTerms: []string{
				"oversupply", "margin compression", "inventory build",
				"weak demand", "demand destruction", "capacity expansion",
			},
			DomainStopwords: []string{
				"oil", "petroleum", "energy", "week", "according",
				"said", "also", "would", "barrel", "price",
			},
			Topics:          5,
			MaxVocabulary:   1000,
			MinDocFreq:      2,
			MaxDocFreqRatio: 0.95,
		},
		Analysis: AnalysisConfig{
			ToleranceDays: 7,
			MaxLag:        4,
			Alpha:         0.05,
			CorrWindow:    12,
			CorrMinPeriod: 4,
		},
		Classify: ClassifyConfig{
			Timeout: Duration{10 * time.Second},
		},
	}
}
