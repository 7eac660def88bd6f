package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/camvault/internal/flagx"
)

// parseFlags overlays command-line flags.
//
// Supported flags:
//
//	-a string             HTTP bind address (e.g., ":5000")
//	-driver string        store dialect, sqlite or postgres
//	-d string             database DSN
//	-max-users int        registered user cap, admin included
//	-archive-dir string   archive directory
//	-live-dir string      live frame directory
//	-capacity int         archive capacity in frames
//	-fast-period duration live capture period
//	-archive-every int    archive every Nth live capture
//	-camera string        camera command
//	-on-failure string    skip or fatal
//	-capture              run the capture loop in-process
//	-log-level string     debug, info, warn or error
func parseFlags(config *Config, argv []string) error {
	args := flagx.FilterArgs(argv, []string{
		"-a", "-driver", "-d", "-max-users", "-archive-dir", "-live-dir", "-capacity",
		"-fast-period", "-archive-every", "-camera", "-on-failure", "-log-level",
	}, "-capture")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxUsers, "max-users", config.MaxUsers, "maximum number of users")
	fs.StringVar(&config.ArchiveDir, "archive-dir", config.ArchiveDir, "archive directory")
	fs.StringVar(&config.LiveDir, "live-dir", config.LiveDir, "live frame directory")
	fs.IntVar(&config.ArchiveCapacity, "capacity", config.ArchiveCapacity, "archive capacity")
	fs.DurationVar(&config.FastPeriod, "fast-period", config.FastPeriod, "live capture period")
	fs.IntVar(&config.ArchiveEvery, "archive-every", config.ArchiveEvery, "archive every Nth capture")
	fs.StringVar(&config.CameraCommand, "camera", config.CameraCommand, "camera command")
	fs.StringVar(&config.OnDeviceFailure, "on-failure", config.OnDeviceFailure, "device failure policy")
	fs.BoolVar(&config.CaptureEnabled, "capture", config.CaptureEnabled, "run capture loop")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
