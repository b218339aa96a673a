package config

// DefaultApplier applies defaults for one configuration section.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type compilerDefaults struct{}

func (compilerDefaults) Domain() string { return "compiler" }

func (compilerDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Compiler.Binary == "" {
		cfg.Compiler.Binary = "buf"
	}
}

type historyDefaults struct{}

func (historyDefaults) Domain() string { return "history" }

func (historyDefaults) ApplyDefaults(cfg *Config) {
	if cfg.History.Path == "" {
		cfg.History.Path = ".getbuf/history.db"
	}
}

type watchDefaults struct{}

func (watchDefaults) Domain() string { return "watch" }

func (watchDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "500ms"
	}
}

type artifactsDefaults struct{}

func (artifactsDefaults) Domain() string { return "artifacts" }

func (artifactsDefaults) ApplyDefaults(cfg *Config) {
	if s3 := cfg.Artifacts.S3; s3 != nil {
		if s3.When == "" {
			s3.When = UploadFailure
		}
		if s3.Prefix == "" {
			s3.Prefix = "getbuf"
		}
	}
}

var defaultAppliers = []DefaultApplier{
	compilerDefaults{},
	historyDefaults{},
	watchDefaults{},
	artifactsDefaults{},
}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
