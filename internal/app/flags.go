package app

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type flagOverrides struct {
	configPath     string
	qbtURL         string
	qbtUsername    string
	remoteURL      string
	pollInterval   time.Duration
	shutdownDelay  time.Duration
	dryRun         bool
	statusHTTPAddr string
	logLevel       string
	logFormat      string
}

func registerFlags(flagSet *pflag.FlagSet) *flagOverrides {
	o := &flagOverrides{}
	flagSet.StringVar(&o.configPath, "config", "", "path to a YAML config file (overrides BRIDGE_CONFIG)")
	flagSet.StringVar(&o.qbtURL, "qbt-url", "", "qBittorrent WebAPI base URL")
	flagSet.StringVar(&o.qbtUsername, "qbt-username", "", "qBittorrent username")
	flagSet.StringVar(&o.remoteURL, "remote-url", "", "remote store endpoint")
	flagSet.Var(&durationValue{target: &o.pollInterval}, "interval", "sleep between poll cycles (duration or seconds)")
	flagSet.Var(&durationValue{target: &o.shutdownDelay}, "shutdown-delay", "delay passed to the OS shutdown command (duration or seconds)")
	flagSet.BoolVar(&o.dryRun, "dry-run", false, "log the shutdown command instead of running it")
	flagSet.StringVar(&o.statusHTTPAddr, "status-addr", "", "listen address of the status server (empty disables it)")
	flagSet.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.StringVar(&o.logFormat, "log-format", "", "text or json")
	return o
}

// apply copies only the flags that were set on the command line.
func (o *flagOverrides) apply(flagSet *pflag.FlagSet, cfg *Config) {
	if flagSet.Changed("qbt-url") {
		cfg.QBTURL = o.qbtURL
	}
	if flagSet.Changed("qbt-username") {
		cfg.QBTUsername = o.qbtUsername
	}
	if flagSet.Changed("remote-url") {
		cfg.RemoteURL = o.remoteURL
	}
	if flagSet.Changed("interval") {
		cfg.PollInterval = o.pollInterval
	}
	if flagSet.Changed("shutdown-delay") {
		cfg.ShutdownDelay = o.shutdownDelay
	}
	if flagSet.Changed("dry-run") {
		cfg.ShutdownDryRun = o.dryRun
	}
	if flagSet.Changed("status-addr") {
		cfg.StatusHTTPAddr = o.statusHTTPAddr
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if flagSet.Changed("log-format") {
		cfg.LogFormat = strings.ToLower(o.logFormat)
	}
}
