package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/icodeforyou/rceprices-go/dispatch"
	"github.com/icodeforyou/rceprices-go/logging"
	"github.com/icodeforyou/rceprices-go/metrics"
	"github.com/icodeforyou/rceprices-go/optimize"
	"github.com/icodeforyou/rceprices-go/pse"
)

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

type AppConfigApi struct {
	Address string
	Port    int16
	// If not assigned, the server will serve embedded files.
	// If assigned, the server will serve files from the directory,
	// that must contain a "static" directory. Useful for development.
	WwwDir *string `mapstructure:"www_dir"`
	// How often metrics are pushed to websocket clients in seconds, default: 60
	BroadcastInterval *int `mapstructure:"broadcast_interval"`
}

func (a AppConfigApi) GetBroadcastInterval() time.Duration {
	return time.Duration(valueOr(a.BroadcastInterval, 60)) * time.Second
}

type AppConfigDatabase struct {
	Path string
	// How many days data should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	return valueOr(d.DataRetentionDays, 90)
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	return valueOr(d.BackupRetentionDays, 30)
}

type AppConfigFeed struct {
	Url        *string `mapstructure:"url"`
	Hourly     bool    `mapstructure:"use_hourly_prices"`
	Interval   *int    `mapstructure:"interval"`    // minutes between fetches, default: 30
	Timeout    *int    `mapstructure:"timeout"`     // seconds per fetch, default: 30
	MaxRetries *int    `mapstructure:"max_retries"` // default: 3
	RunAt      *string `mapstructure:"run_at"`
}

func (f AppConfigFeed) GetUrl() string {
	return valueOr(f.Url, pse.DefaultURL)
}

func (f AppConfigFeed) GetInterval() time.Duration {
	return time.Duration(valueOr(f.Interval, 30)) * time.Minute
}

func (f AppConfigFeed) GetTimeout() time.Duration {
	return time.Duration(valueOr(f.Timeout, 30)) * time.Second
}

func (f AppConfigFeed) GetMaxRetries() int {
	return valueOr(f.MaxRetries, 3)
}

func (f AppConfigFeed) GetRunAt() string {
	return valueOr(f.RunAt, "*/30 * * * *")
}

// AppConfigWindow is an hour band [Start, End) searched for a window of Duration hours.
type AppConfigWindow struct {
	Start    *int `mapstructure:"start"`
	End      *int `mapstructure:"end"`
	Duration *int `mapstructure:"duration"`
}

func (w AppConfigWindow) GetStart() int {
	return valueOr(w.Start, 0)
}

func (w AppConfigWindow) GetEnd() int {
	return valueOr(w.End, 24)
}

func (w AppConfigWindow) GetDuration() int {
	return valueOr(w.Duration, 2)
}

func (w AppConfigWindow) validate(name string) error {
	start, end, duration := w.GetStart(), w.GetEnd(), w.GetDuration()
	if start < 0 || end > 24 || start >= end {
		return fmt.Errorf("%s window: start %d must be before end %d within 0-24", name, start, end)
	}
	if duration < 1 {
		return fmt.Errorf("%s window: duration must be at least one hour, got %d", name, duration)
	}
	return nil
}

type AppConfigWindows struct {
	Cheapest  AppConfigWindow `mapstructure:"cheapest"`
	Expensive AppConfigWindow `mapstructure:"expensive"`
}

func (w AppConfigWindows) Bands() metrics.Windows {
	band := func(c AppConfigWindow) metrics.Band {
		return metrics.Band{Start: c.GetStart(), End: c.GetEnd(), Duration: c.GetDuration()}
	}
	return metrics.Windows{Cheapest: band(w.Cheapest), Expensive: band(w.Expensive)}
}

type AppConfigOptimizer struct {
	BatteryCapacity  *float64 `mapstructure:"battery_capacity"`   // Usable battery capacity in kWh, default: 10
	SoC              float64  `mapstructure:"soc"`                // Battery state of charge in percentage
	PVForecast       float64  `mapstructure:"pv_forecast"`        // Expected PV production for tomorrow in kWh
	DailyConsumption *float64 `mapstructure:"daily_consumption"`  // Required daily energy in kWh, default: 10
	MaxGridPower     *float64 `mapstructure:"max_grid_power"`     // Grid connection limit in kW, default: 10
	MaxChargingPower *float64 `mapstructure:"max_charging_power"` // Battery charging limit in kW, default: 5
	PVStartHour      *int     `mapstructure:"pv_start_hour"`      // default: 7
	PVEndHour        *int     `mapstructure:"pv_end_hour"`        // default: 19
}

func (o AppConfigOptimizer) Readings() optimize.Readings {
	return optimize.Readings{
		Battery: optimize.Battery{
			CapacityKWh: valueOr(o.BatteryCapacity, 10),
			SoCPercent:  o.SoC,
		},
		PVForecastKWh:       o.PVForecast,
		DailyConsumptionKWh: valueOr(o.DailyConsumption, 10),
		MaxGridPowerKW:      valueOr(o.MaxGridPower, 10),
		MaxChargingPowerKW:  valueOr(o.MaxChargingPower, 5),
		PVStartHour:         valueOr(o.PVStartHour, 7),
		PVEndHour:           valueOr(o.PVEndHour, 19),
	}
}

type AppConfigDispatch struct {
	Enabled     bool    `mapstructure:"enabled"`
	Host        string  `mapstructure:"host"`
	Port        int16   `mapstructure:"port"`
	Username    string  `mapstructure:"username"`
	Password    string  `mapstructure:"password"`
	TopicPrefix *string `mapstructure:"topic_prefix"` // default: "rceprices"
	DeviceId    string  `mapstructure:"device_id"`
	// Sell mask threshold in PLN/MWh
	SellThreshold float64 `mapstructure:"sell_threshold"`
	// Buy mask threshold in PLN/MWh, ignored when BuyThresholdFromOptimizer is set
	BuyThreshold float64 `mapstructure:"buy_threshold"`
	// 0 disabled, 1 charge battery only, 2 charge and sell
	BuySwitch                 int     `mapstructure:"buy_switch"`
	FlipSell                  bool    `mapstructure:"flip_sell"`
	FlipBuy                   bool    `mapstructure:"flip_buy"`
	BuyThresholdFromOptimizer bool    `mapstructure:"buy_threshold_from_optimizer"`
	AckTimeout                *int    `mapstructure:"ack_timeout"` // seconds, default: 30
	RunAt                     *string `mapstructure:"run_at"`
}

func (d AppConfigDispatch) Settings() dispatch.Settings {
	return dispatch.Settings{
		Device:                    d.DeviceId,
		SellThreshold:             d.SellThreshold,
		BuyThreshold:              d.BuyThreshold,
		BuySwitch:                 d.BuySwitch,
		FlipSell:                  d.FlipSell,
		FlipBuy:                   d.FlipBuy,
		BuyThresholdFromOptimizer: d.BuyThresholdFromOptimizer,
	}
}

func (d AppConfigDispatch) Options() dispatch.Options {
	return dispatch.Options{
		Host:        d.Host,
		Port:        d.Port,
		Username:    d.Username,
		Password:    d.Password,
		TopicPrefix: d.GetTopicPrefix(),
		Device:      d.DeviceId,
		AckTimeout:  d.GetAckTimeout(),
	}
}

func (d AppConfigDispatch) GetTopicPrefix() string {
	return valueOr(d.TopicPrefix, "rceprices")
}

func (d AppConfigDispatch) GetAckTimeout() time.Duration {
	return time.Duration(valueOr(d.AckTimeout, 30)) * time.Second
}

func (d AppConfigDispatch) GetRunAt() string {
	return valueOr(d.RunAt, "1 14 * * *")
}

type AppConfigMaintenance struct {
	RunAt *string `mapstructure:"run_at"`
}

func (m AppConfigMaintenance) GetRunAt() string {
	return valueOr(m.RunAt, "30 2 * * *")
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
	// Rotated JSON log file, disabled when empty
	File           string  `mapstructure:"file"`
	FileLevel      *string `mapstructure:"file_level"`
	FileMaxSizeMB  *int    `mapstructure:"file_max_size_mb"`
	FileMaxBackups *int    `mapstructure:"file_max_backups"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(valueOr(l.DbLevel, "INFO"))
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if strings.EqualFold(valueOr(l.DbAttrsFormat, ""), "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	return valueOr(l.DbMaxEntries, 10000)
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(valueOr(l.ConsoleLevel, "INFO"))
}

func (l AppConfigLogging) GetFileLevel() slog.Level {
	return logging.LevelFromString(valueOr(l.FileLevel, "INFO"))
}

func (l AppConfigLogging) FileOptions() logging.FileOptions {
	return logging.FileOptions{
		Path:       l.File,
		MaxSizeMB:  valueOr(l.FileMaxSizeMB, 10),
		MaxBackups: valueOr(l.FileMaxBackups, 5),
		MaxAgeDays: 30,
		Compress:   true,
	}
}

type AppConfig struct {
	Api         AppConfigApi
	Database    AppConfigDatabase
	Feed        AppConfigFeed        `mapstructure:"feed"`
	Windows     AppConfigWindows     `mapstructure:"windows"`
	Optimizer   AppConfigOptimizer   `mapstructure:"optimizer"`
	Dispatch    AppConfigDispatch    `mapstructure:"dispatch"`
	Maintenance AppConfigMaintenance `mapstructure:"maintenance"`
	Logging     AppConfigLogging     `mapstructure:"logging"`
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if err := c.Windows.Cheapest.validate("cheapest"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Windows.Expensive.validate("expensive"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Optimizer.Readings().Params().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("optimizer: %w", err))
	}
	if c.Dispatch.BuySwitch < 0 || c.Dispatch.BuySwitch > 2 {
		errs = append(errs, fmt.Errorf("dispatch buy_switch must be 0, 1 or 2, got %d", c.Dispatch.BuySwitch))
	}
	if c.Dispatch.Enabled && (c.Dispatch.Host == "" || c.Dispatch.DeviceId == "") {
		errs = append(errs, errors.New("dispatch requires host and device_id when enabled"))
	}
	return errors.Join(errs...)
}

// Load reads .env (if present) and the yaml config, environment variables
// override file values, e.g. DISPATCH_PASSWORD for dispatch.password.
func Load(path string) (*AppConfig, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	c, err := decode(v)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Live holds the current configuration and swaps it when the file changes.
type Live struct {
	v       *viper.Viper
	current atomic.Pointer[AppConfig]
}

func LoadLive(path string) (*Live, error) {
	v := viper.New()
	c, err := load(v, path)
	if err != nil {
		return nil, err
	}
	l := &Live{v: v}
	l.current.Store(c)
	return l, nil
}

func (l *Live) Get() *AppConfig {
	return l.current.Load()
}

// Watch re-reads the file on every change. Invalid edits are logged and the
// previous configuration stays active. onChange may be nil.
func (l *Live) Watch(logger *slog.Logger, onChange func(*AppConfig)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		c, err := decode(l.v)
		if err != nil {
			logger.Error("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		l.current.Store(c)
		logger.Info("config reloaded", slog.String("file", e.Name))
		if onChange != nil {
			onChange(c)
		}
	})
	l.v.WatchConfig()
}
