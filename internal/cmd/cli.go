// Package cmd defines the ttybridge command line interface.
package cmd

// LogConfig groups the logging flags shared by all commands.
type LogConfig struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"TTYBRIDGE_LOG_LEVEL"`
	File    string `help:"Write logs to this file instead of the console" env:"TTYBRIDGE_LOG_FILE"`
	RawFile string `help:"Write raw descriptor/uevent hex dumps to this file" env:"TTYBRIDGE_RAW_LOG_FILE"`
}

// CLI is the root command structure parsed by kong.
type CLI struct {
	Log LogConfig `embed:"" prefix:"log."`

	Daemon  Daemon        `cmd:"" help:"Run the bridge manager, attaching serial streams for matching devices"`
	List    List          `cmd:"" help:"List matching devices and the node names they resolve to"`
	Config  ConfigCommand `cmd:"" help:"Configuration file helpers"`
	Service ServiceCmd    `cmd:"" help:"Install or remove the systemd service"`
}
