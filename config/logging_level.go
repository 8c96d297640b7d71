package config

import (
	"go.viam.com/ikchain/logging"
)

// LogLevel returns the level to log at. Debug logs are on if either the command line or the config
// file asks for them.
func (c *Config) LogLevel(cmdLineDebugFlag bool) logging.Level {
	if cmdLineDebugFlag || c.Debug {
		return logging.DEBUG
	}
	return logging.INFO
}

// InitLoggingSettings sets the level of logger from the config and command line and reports it.
func (c *Config) InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	level := c.LogLevel(cmdLineDebugFlag)
	logger.SetLevel(level)
	logger.Debugw("log level initialized", "level", level.String())
}
