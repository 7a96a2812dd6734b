package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FinCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SummaryCacheTTL time.Duration `yaml:"summary_cache_ttl" default:"1m"`
		UpdateBurst     int           `yaml:"update_burst" default:"3" validate:"gte=1"`
		UpdateRefill    float64       `yaml:"update_refill_per_sec" default:"0.05" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Paths struct {
		ScrapedDir     string `yaml:"scraped_dir" default:"data/scraped"`
		PredictionsDir string `yaml:"predictions_dir" default:"data/predictions"`
		ParamsDir      string `yaml:"params_dir" default:"data/params"`
		SummaryDir     string `yaml:"summary_dir" default:"data/summaries"`
	} `yaml:"paths"`
	Source struct {
		Type  string `yaml:"type" default:"file" validate:"oneof=file clickhouse"`
		Table string `yaml:"table" default:"weekly_closes"`
	} `yaml:"source"`
	Training struct {
		SplitIndex     int     `yaml:"split_index" default:"105" validate:"gte=0"`
		TestSize       float64 `yaml:"test_size" default:"0.2" validate:"gte=0,lt=1"`
		MinTrainSize   int     `yaml:"min_train_size" default:"52" validate:"gte=1"`
		TestRun        bool    `yaml:"test_run"`
		TestRunRows    int     `yaml:"test_run_rows" default:"108" validate:"gte=2"`
		FallbackWindow int     `yaml:"fallback_window" default:"5" validate:"gte=1"`
	} `yaml:"training"`
	Models struct {
		ARIMA struct {
			MaxP           int `yaml:"max_p" default:"3" validate:"gte=0"`
			MaxQ           int `yaml:"max_q" default:"3" validate:"gte=0"`
			MaxSeasonalP   int `yaml:"max_seasonal_p" default:"2" validate:"gte=0"`
			MaxSeasonalQ   int `yaml:"max_seasonal_q" default:"2" validate:"gte=0"`
			MaxD           int `yaml:"max_d" default:"2" validate:"gte=0"`
			SeasonalPeriod int `yaml:"seasonal_period" default:"52" validate:"gte=1"`
		} `yaml:"arima"`
		Ensemble struct {
			Generations int   `yaml:"generations" default:"4" validate:"gte=1"`
			Validations int   `yaml:"validations" default:"2" validate:"gte=1"`
			Seed        int64 `yaml:"seed" default:"2024"`
		} `yaml:"ensemble"`
		Pretrained struct {
			Backend      string        `yaml:"backend" default:"linear" validate:"oneof=linear http"`
			WeightsPath  string        `yaml:"weights_path" validate:"omitempty,file"`
			ServiceURL   string        `yaml:"service_url" validate:"required_if=Backend http"`
			ModelName    string        `yaml:"model_name" default:"Maple728/TimeMoE-200M"`
			Device       string        `yaml:"device" default:"auto" validate:"oneof=auto cuda cpu"`
			WindowLength int           `yaml:"window_length" default:"10" validate:"gte=2"`
			Timeout      time.Duration `yaml:"timeout" default:"30s"`
		} `yaml:"pretrained"`
	} `yaml:"models"`
	ParamStore struct {
		Type string `yaml:"type" default:"file" validate:"oneof=file redis memory"`
	} `yaml:"param_store"`
	Redis struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"fincast"`
		PoolSize    int           `yaml:"pool_size" default:"10" validate:"gte=1"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic        string        `yaml:"topic" default:"fincast.forecasts"`
		RequiredAcks int           `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"default"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		Compress    bool          `yaml:"compress"`
		MaxOpen     int           `yaml:"max_open_conns" default:"4" validate:"gte=1"`
		MaxIdle     int           `yaml:"max_idle_conns" default:"2" validate:"gte=0"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Update struct {
		LockTTL time.Duration `yaml:"lock_ttl" default:"30m"`
	} `yaml:"update"`
	Scheduler struct {
		Enabled bool   `yaml:"enabled"`
		Spec    string `yaml:"spec" default:"0 6 * * SAT"`
	} `yaml:"scheduler"`
	RunHistory struct {
		Path string `yaml:"path"`
	} `yaml:"run_history"`
}

// Load reads and parses a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a validated config built only from struct defaults.
func Default() *Config {
	c, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FINCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("FINCAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("FINCAST_SCRAPED_DIR"); v != "" {
		c.Paths.ScrapedDir = v
	}
	if v := getenv("FINCAST_PREDICTIONS_DIR"); v != "" {
		c.Paths.PredictionsDir = v
	}
	if v := getenv("FINCAST_PARAM_STORE"); v != "" {
		c.ParamStore.Type = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, _ := strings.Cut(v, ":")
		c.Redis.Host = host
		c.Redis.Port = util.ParseIntDefault(port, c.Redis.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
