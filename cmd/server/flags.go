package main

import (
	"flag"
	"fmt"
	"os"
)

type Config struct {
	Port           int
	Host           string
	ConfigFile     string
	LogLevel       string
	LogFormat      string
	EnableMetrics  bool
	MetricsPort    int
	StorageBackend string
	StoragePath    string
	RedisAddr      string
	MaxIterations  int
	MaxChains      int
	Version        bool

	// set holds the names of flags given on the command line
	set map[string]bool
}

// IsSet reports whether name was passed explicitly
func (c *Config) IsSet(name string) bool {
	return c.set[name]
}

func ParseFlags() *Config {
	config := &Config{}

	flag.IntVar(&config.Port, "port", 8080, "Server port")
	flag.StringVar(&config.Host, "host", "0.0.0.0", "Server host")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&config.LogFormat, "log-format", "json", "Log format (json, text)")
	flag.BoolVar(&config.EnableMetrics, "metrics", true, "Expose Prometheus metrics on /metrics")
	flag.IntVar(&config.MetricsPort, "metrics-port", 0, "Also serve metrics on a dedicated port (0 disables)")
	flag.StringVar(&config.StorageBackend, "storage", "memory", "Storage backend (memory, file, redis)")
	flag.StringVar(&config.StoragePath, "storage-path", "./data/runs", "Directory for the file backend")
	flag.StringVar(&config.RedisAddr, "redis-addr", "localhost:6379", "Redis address for the redis backend")
	flag.IntVar(&config.MaxIterations, "max-iterations", 1_000_000, "Largest iteration count accepted per request")
	flag.IntVar(&config.MaxChains, "max-chains", 16, "Largest chain count accepted per request")
	flag.BoolVar(&config.Version, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMarkov chain sampling server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	config.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		config.set[f.Name] = true
	})

	if config.Version {
		printVersion(os.Stdout)
		os.Exit(0)
	}

	return config
}
