package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"evler_migrator/formsync"
	"evler_migrator/models"
)

type Config struct {
	QueuePath   string
	DBPath      string
	DatabaseURL string
	ListenAddr  string
	LogPath     string

	Headless   bool
	JobTimeout time.Duration
	MaxPhotos  int
	DryRun     bool

	Credentials models.Credentials
	Scheduler   SchedulerConfig
	Form        formsync.Config
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		QueuePath:   getEnv("QUEUE_PATH", "migration-queue.json"),
		DBPath:      getEnv("DB_PATH", "migrator.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8090"),
		LogPath:     getEnv("LOG_PATH", "migrator.log"),
		Headless:    getEnvBool("HEADLESS", true),
		JobTimeout:  getEnvDuration("JOB_TIMEOUT", 10*time.Minute),
		MaxPhotos:   getEnvInt("MAX_PHOTOS", -1),
		DryRun:      getEnvBool("WORKER_DRY_RUN", false),
		Credentials: models.Credentials{
			Email:    os.Getenv("WORKER_EMAIL"),
			Password: os.Getenv("WORKER_PASSWORD"),
		},
		Scheduler: SchedulerConfig{
			Cron:     os.Getenv("WORKER_CRON"),
			Interval: getEnvDuration("WORKER_INTERVAL", 0),
		},
	}

	form, err := loadFormConfig(getEnv("FORM_CONFIG", "config/form.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Form = form

	return cfg, nil
}

// formYAML mirrors formsync.Config with string durations so the file
// can say "8s" instead of nanosecond counts.
type formYAML struct {
	BaseURL        string `yaml:"base_url"`
	LoginPath      string `yaml:"login_path"`
	FormPath       string `yaml:"form_path"`
	PollInterval   string `yaml:"poll_interval"`
	CascadeTimeout string `yaml:"cascade_timeout"`
	SubmitChecks   int    `yaml:"submit_checks"`
	SubmitInterval string `yaml:"submit_interval"`
	UploadSettle   string `yaml:"upload_settle"`
}

// loadFormConfig overlays the YAML tunables for the destination form
// onto the defaults. A missing file just means defaults.
func loadFormConfig(path string) (formsync.Config, error) {
	cfg := formsync.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	var raw formYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, err
	}
	if raw.BaseURL != "" {
		cfg.BaseURL = raw.BaseURL
	}
	if raw.LoginPath != "" {
		cfg.LoginPath = raw.LoginPath
	}
	if raw.FormPath != "" {
		cfg.FormPath = raw.FormPath
	}
	if raw.SubmitChecks > 0 {
		cfg.SubmitChecks = raw.SubmitChecks
	}
	if err := overlayDuration(&cfg.PollInterval, raw.PollInterval); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.CascadeTimeout, raw.CascadeTimeout); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.SubmitInterval, raw.SubmitInterval); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.UploadSettle, raw.UploadSettle); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func overlayDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
