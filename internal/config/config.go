// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Transport TransportConfig `mapstructure:"transport"`
	Client    ClientConfig    `mapstructure:"client"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Requests  []RequestConfig `mapstructure:"requests"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// TransportConfig defines the line the master talks over
type TransportConfig struct {
	Type   string       `mapstructure:"type"`   // "rtu", "rtu-over-tcp", "memory"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "rtu"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "rtu-over-tcp"
	Memory MemoryConfig `mapstructure:"memory"` // Used if Type is "memory"
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string        `mapstructure:"address"` // e.g. "192.168.1.100:4001"
	Timeout time.Duration `mapstructure:"timeout"`
}

// MemoryConfig defines the in-process transport used for dry runs
type MemoryConfig struct {
	Echo bool `mapstructure:"echo"` // answer every request with itself
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	Parity      string        `mapstructure:"parity"`
	StopBits    int           `mapstructure:"stop_bits"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"` // Close the port after this long without traffic

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// ClientConfig defines master behavior
type ClientConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`  // Overrides the transport timeout if set
	NoReply bool          `mapstructure:"no_reply"` // Do not wait for write acknowledgments
}

// CaptureConfig defines where exchanges are recorded
type CaptureConfig struct {
	Type   string `mapstructure:"type"`   // "", "memory", "file", "mmap", "sql"
	Path   string `mapstructure:"path"`   // File path for "file/mmap" type
	Slots  int    `mapstructure:"slots"`  // Ring size for "mmap", limit for "memory"
	Driver string `mapstructure:"driver"` // database/sql driver for "sql"
	DSN    string `mapstructure:"dsn"`
}

// RunnerConfig defines how configured requests are scheduled
type RunnerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`   // Zero runs every request once
	RqstPause time.Duration `mapstructure:"rqst_pause"` // Pause between requests
}

// RequestConfig defines one operation, issued to every listed unit
type RequestConfig struct {
	Name     string   `mapstructure:"name"`     // Optional name for logging
	UnitIDs  string   `mapstructure:"unit_ids"` // "1", "1,2", "1-10"
	Function string   `mapstructure:"function"` // e.g. "read_holding_registers"
	Address  uint16   `mapstructure:"address"`
	Quantity uint16   `mapstructure:"quantity"`
	Values   []uint16 `mapstructure:"values"` // Register values; for coils non-zero is On

	// custom frames only
	Frame       string `mapstructure:"frame"`        // hex function code and data; unit id and CRC are added
	ReplyLength int    `mapstructure:"reply_length"` // zero reads nothing
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"transport":    "transport.type",
	"device":       "transport.serial.device",
	"baud_rate":    "transport.serial.baud_rate",
	"address":      "transport.tcp.address",
	"timeout":      "client.timeout",
	"no_reply":     "client.no_reply",
	"interval":     "runner.interval",
	"capture":      "capture.type",
	"capture_path": "capture.path",
	"log_level":    "log.level",
	"log_file":     "log.file",
}

// RegisterFlags defines the command line flags LoadConfig understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Configuration file path.")
	fs.StringP("transport", "t", "", "Transport type (rtu, rtu-over-tcp, memory).")
	fs.StringP("device", "p", "", "Serial port device name.")
	fs.IntP("baud_rate", "s", 0, "Serial port speed.")
	fs.StringP("address", "A", "", "RTU over TCP device server address.")
	fs.DurationP("timeout", "W", 0, "Response wait time.")
	fs.Bool("no_reply", false, "Do not wait for write acknowledgments.")
	fs.DurationP("interval", "i", 0, "Poll interval, zero runs the requests once.")
	fs.String("capture", "", "Capture recorder type (memory, file, mmap, sql).")
	fs.String("capture_path", "", "Capture file path.")
	fs.StringP("log_level", "v", "", "Log verbosity level (debug, info, warn, error).")
	fs.StringP("log_file", "L", "", "Log file name ('-' for logging to STDOUT only).")
}

// LoadConfig loads configuration from file, with flags taking
// precedence. flags may be nil. A missing config file is only an error
// when configFile names it explicitly.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-rtu/")
		v.AddConfigPath("$HOME/.modbus-rtu")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("transport.type", "rtu")
	v.SetDefault("transport.serial.baud_rate", 19200)
	v.SetDefault("transport.serial.data_bits", 8)
	v.SetDefault("transport.serial.parity", "N")
	v.SetDefault("transport.serial.stop_bits", 1)
	v.SetDefault("transport.serial.idle_timeout", 60*time.Second)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate / Fixups
	fixupSerial(&config.Transport.Serial)
	config.Transport.Type = strings.ToLower(config.Transport.Type)
	if config.Runner.RqstPause == 0 {
		config.Runner.RqstPause = 100 * time.Millisecond
	}
	for i := range config.Requests {
		if _, err := ParseUnitIDs(config.Requests[i].UnitIDs); err != nil {
			return nil, fmt.Errorf("request %d (%s): %w", i, config.Requests[i].Name, err)
		}
	}

	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}
