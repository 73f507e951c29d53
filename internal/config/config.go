package config

import (
	"os"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type ExchangeConfig struct {
	BaseURL       string `yaml:"base_url"`
	MaxLimit      int    `yaml:"max_limit"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

type IndicatorConfig struct {
	RSIPeriod  int `yaml:"rsi_period"`
	MACDFast   int `yaml:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow"`
	MACDSignal int `yaml:"macd_signal"`
	EMAFast    int `yaml:"ema_fast"`
	EMASlow    int `yaml:"ema_slow"`
}

type OracleConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type MonitorConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Username   string `yaml:"username"`
}

type TickerConfig struct {
	WebsocketURL string   `yaml:"websocket_url"`
	Symbols      []string `yaml:"symbols"`
}

type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Exchanges  map[string]ExchangeConfig `yaml:"exchanges"`
	Indicators IndicatorConfig           `yaml:"indicators"`
	Oracle     OracleConfig              `yaml:"oracle"`
	Monitor    MonitorConfig             `yaml:"monitor"`
	Notify     NotifyConfig              `yaml:"notify"`
	Ticker     TickerConfig              `yaml:"ticker"`
	MinCandles int                       `yaml:"min_candles"`
	LogLevel   string                    `yaml:"log_level"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{
		LogLevel: "info",
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(&config); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) GetMinCandles() int {
	if c.MinCandles <= 0 {
		return common.DefaultMinCandles
	}
	return c.MinCandles
}

func (c *Config) GetMonitorInterval() time.Duration {
	if c.Monitor.IntervalSec <= 0 {
		return time.Duration(common.DefaultMonitorIntervalSec) * time.Second
	}
	return time.Duration(c.Monitor.IntervalSec) * time.Second
}

func (c *Config) GetOracleTimeout() time.Duration {
	if c.Oracle.TimeoutSec <= 0 {
		return time.Duration(common.DefaultOracleTimeoutSec) * time.Second
	}
	return time.Duration(c.Oracle.TimeoutSec) * time.Second
}

func (c *Config) GetExchangeConfig(exchange string) (ExchangeConfig, bool) {
	ec, ok := c.Exchanges[exchange]
	return ec, ok
}

// GetIndicators returns the indicator periods with defaults applied. The
// periods are policy values, not derived; they stay configurable.
func (c *Config) GetIndicators() IndicatorConfig {
	ic := c.Indicators
	if ic.RSIPeriod <= 0 {
		ic.RSIPeriod = common.DefaultRSIPeriod
	}
	if ic.MACDFast <= 0 {
		ic.MACDFast = common.DefaultMACDFast
	}
	if ic.MACDSlow <= 0 {
		ic.MACDSlow = common.DefaultMACDSlow
	}
	if ic.MACDSignal <= 0 {
		ic.MACDSignal = common.DefaultMACDSignal
	}
	if ic.EMAFast <= 0 {
		ic.EMAFast = common.DefaultEMAFast
	}
	if ic.EMASlow <= 0 {
		ic.EMASlow = common.DefaultEMASlow
	}
	return ic
}

func (e ExchangeConfig) GetMaxConcurrent() int {
	if e.MaxConcurrent <= 0 {
		return common.DefaultMaxConcurrent
	}
	return e.MaxConcurrent
}

func (e ExchangeConfig) GetTimeout() time.Duration {
	if e.TimeoutSec <= 0 {
		return time.Duration(common.DefaultHTTPTimeoutSec) * time.Second
	}
	return time.Duration(e.TimeoutSec) * time.Second
}
