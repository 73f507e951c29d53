package common

const (
	DefaultConfigPath = "./configs/config.yml"

	DefaultMonitorIntervalSec = 900
	DefaultMinCandles         = 50
	DefaultFetchLimit         = 200
	DefaultOracleTimeoutSec   = 45
	DefaultHTTPTimeoutSec     = 15
	DefaultMaxConcurrent      = 4

	ExchangeBybit = "bybit"
	ExchangeNami  = "nami"
	ExchangeOnus  = "onus"

	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
	DefaultEMAFast    = 9
	DefaultEMASlow    = 21

	// Volume is averaged over this many trailing candles for the volume signal.
	VolumeLookback = 20
)
