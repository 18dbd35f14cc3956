package config

const (
	DefaultMainClass    = "org.dita.dost.invoker.Main"
	DefaultJava         = "java"
	DefaultOutputDir    = "./out"
	DefaultErrorTail    = 5
	DefaultConcurrency  = 4
	DefaultProbeTimeout = "10s"
	DefaultCacheTTL     = "10m"
	DefaultCacheSize    = 1024
	DefaultEventSubject = "ditabuilder.results"
)

func applyDefaults(cfg *Config) {
	if cfg.Toolkit.Strategy == "" {
		cfg.Toolkit.Strategy = StrategyScript
	}
	if cfg.Toolkit.Java == "" {
		cfg.Toolkit.Java = DefaultJava
	}
	if cfg.Toolkit.MainClass == "" {
		cfg.Toolkit.MainClass = DefaultMainClass
	}
	if cfg.Transform.OutputDir == "" {
		cfg.Transform.OutputDir = DefaultOutputDir
	}
	if cfg.Transform.Parallel <= 0 {
		cfg.Transform.Parallel = 1
	}
	if cfg.Retry.Mode == "" {
		cfg.Retry.Mode = RetryBackoffLinear
	}
	if cfg.Diagnostics.ErrorTail <= 0 {
		cfg.Diagnostics.ErrorTail = DefaultErrorTail
	}
	if cfg.Check.Concurrency <= 0 {
		cfg.Check.Concurrency = DefaultConcurrency
	}
	if cfg.Check.ProbeTimeout == "" {
		cfg.Check.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Check.CacheTTL == "" {
		cfg.Check.CacheTTL = DefaultCacheTTL
	}
	if cfg.Check.CacheSize <= 0 {
		cfg.Check.CacheSize = DefaultCacheSize
	}
	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventSubject
	}
}
