package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default SWPC endpoints. Kept configurable because upstream schemas and
// paths change; a moved endpoint should be an env override, not a rebuild.
const (
	defaultKpURL     = "https://services.swpc.noaa.gov/products/noaa-planetary-k-index-forecast.json"
	defaultAlertsURL = "https://services.swpc.noaa.gov/products/alerts.json"
	defaultMagURL    = "https://services.swpc.noaa.gov/json/rtsw/rtsw_mag_1m.json"
	defaultSpeedURL  = "https://services.swpc.noaa.gov/json/rtsw/rtsw_speed_1m.json"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Location and scoring.
	Latitude       float64
	LatitudeFactor float64 // sensitivity multiplier derived from Latitude
	LocalTZ        *time.Location
	TZName         string
	LISThreshold   int
	ShortFuseBz    float64 // nT, trigger when Bz <= this
	ShortFuseSpeed float64 // km/s, trigger when speed >= this

	// Calendar and cooldown.
	DailyReportHour int
	WarningCooldown time.Duration

	// Polling cadences and fetch timeout.
	SolarWindInterval  time.Duration
	AlertFeedInterval  time.Duration
	KpForecastInterval time.Duration
	FetchTimeout       time.Duration

	// SWPC endpoints.
	KpURL     string
	AlertsURL string
	MagURL    string
	SpeedURL  string

	// Email channel (enabled iff the whole group is set).
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string
	SMTPTimeout  time.Duration

	// SMS channel (enabled iff the whole group is set).
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	SMSTo            string

	// Optional alert-event export.
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Process plumbing.
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// EmailEnabled reports whether the SMTP channel is configured.
func (c *Config) EmailEnabled() bool { return c.SMTPHost != "" }

// SMSEnabled reports whether the Twilio channel is configured.
func (c *Config) SMSEnabled() bool { return c.TwilioAccountSID != "" }

// KafkaEnabled reports whether the alert-event export is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults
// where unset. Any invalid value is a startup error: the process must refuse
// to start rather than run silently unable to notify.
func Load() (*Config, error) {
	lat, err := envFloat("LAT", 28.9)
	if err != nil {
		return nil, err
	}
	if lat < -90 || lat > 90 {
		return nil, errors.New("LAT must be within [-90, 90]")
	}

	tzName := envOrDefault("LOCAL_TZ", "America/New_York")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TZ %q: %w", tzName, err)
	}

	threshold, err := envInt("LIS_THRESHOLD", 40)
	if err != nil {
		return nil, err
	}
	if threshold < 1 || threshold > 100 {
		return nil, errors.New("LIS_THRESHOLD must be within [1, 100]")
	}

	shortBz, err := envFloat("SHORT_BZ_NT", -10)
	if err != nil {
		return nil, err
	}
	shortSpeed, err := envFloat("SHORT_SPD_KMS", 600)
	if err != nil {
		return nil, err
	}
	if shortSpeed <= 0 {
		return nil, errors.New("SHORT_SPD_KMS must be positive")
	}

	dailyHour, err := envInt("DAILY_REPORT_HOUR", 7)
	if err != nil {
		return nil, err
	}
	if dailyHour < 0 || dailyHour > 23 {
		return nil, errors.New("DAILY_REPORT_HOUR must be within [0, 23]")
	}

	cooldown, err := envDuration("WARNING_COOLDOWN", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	solarWindEvery, err := envDuration("SOLAR_WIND_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	alertFeedEvery, err := envDuration("ALERT_FEED_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	kpEvery, err := envDuration("KP_FORECAST_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	smtpPort, err := envInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	smtpTimeout, err := envDuration("SMTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Latitude:       lat,
		LatitudeFactor: latitudeFactor(lat),
		LocalTZ:        tz,
		TZName:         tzName,
		LISThreshold:   threshold,
		ShortFuseBz:    shortBz,
		ShortFuseSpeed: shortSpeed,

		DailyReportHour: dailyHour,
		WarningCooldown: cooldown,

		SolarWindInterval:  solarWindEvery,
		AlertFeedInterval:  alertFeedEvery,
		KpForecastInterval: kpEvery,
		FetchTimeout:       fetchTimeout,

		KpURL:     envOrDefault("SWPC_KP_URL", defaultKpURL),
		AlertsURL: envOrDefault("SWPC_ALERTS_URL", defaultAlertsURL),
		MagURL:    envOrDefault("SWPC_MAG_URL", defaultMagURL),
		SpeedURL:  envOrDefault("SWPC_SPEED_URL", defaultSpeedURL),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		EmailTo:      os.Getenv("EMAIL_TO"),
		SMTPTimeout:  smtpTimeout,

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		SMSTo:            os.Getenv("SMS_TO"),

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "spaceweather-alerts"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := validateChannels(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateChannels enforces the all-or-nothing rule per channel group and
// requires at least one human-facing channel overall.
func validateChannels(cfg *Config) error {
	if err := checkGroup("email", map[string]string{
		"SMTP_HOST":     cfg.SMTPHost,
		"SMTP_USERNAME": cfg.SMTPUsername,
		"SMTP_PASSWORD": cfg.SMTPPassword,
		"EMAIL_FROM":    cfg.EmailFrom,
		"EMAIL_TO":      cfg.EmailTo,
	}); err != nil {
		return err
	}
	if err := checkGroup("sms", map[string]string{
		"TWILIO_ACCOUNT_SID": cfg.TwilioAccountSID,
		"TWILIO_AUTH_TOKEN":  cfg.TwilioAuthToken,
		"TWILIO_FROM":        cfg.TwilioFrom,
		"SMS_TO":             cfg.SMSTo,
	}); err != nil {
		return err
	}
	if !cfg.EmailEnabled() && !cfg.SMSEnabled() {
		return errors.New("no notification channel configured: set the SMTP_*/EMAIL_* group or the TWILIO_*/SMS_TO group")
	}
	return nil
}

// checkGroup returns an error when a channel group is partially configured.
// An empty group simply disables the channel.
func checkGroup(name string, vars map[string]string) error {
	var set, missing []string
	for k, v := range vars {
		if v == "" {
			missing = append(missing, k)
		} else {
			set = append(set, k)
		}
	}
	if len(set) == 0 || len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%s channel partially configured: missing %s", name, strings.Join(missing, ", "))
}

// latitudeFactor maps absolute latitude to a geomagnetic sensitivity
// multiplier: floor 0.2 below ~30 degrees, rising linearly to 1.0 by ~50.
func latitudeFactor(lat float64) float64 {
	if lat < 0 {
		lat = -lat
	}
	f := (lat - 30) / 20
	if f < 0.2 {
		return 0.2
	}
	if f > 1 {
		return 1
	}
	return f
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
