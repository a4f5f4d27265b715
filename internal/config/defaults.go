package config

const (
	defaultConfigPath            = "~/.config/recoder/config.toml"
	defaultStateDir              = "~/.local/share/recoder"
	defaultLogDir                = "~/.local/share/recoder/logs"
	defaultQuality               = 28
	defaultPreset                = 1
	defaultBenchmarkMaxAgeHours  = 7 * 24
	defaultBenchmarkProbeSeconds = 600
	defaultBenchmarkResolution   = "1920x1080"
	defaultTickMillis            = 1000
	defaultDrainTicks            = 5
	defaultSettleSeconds         = 2
	defaultKillGraceSeconds      = 5
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultTaskNotifyTemplate    = "{{file}} on {{hostname}}: {{original_size}} -> {{new_size}} (saved {{saved_percent}}%) with {{encoder_name}} q{{quality}} p{{preset}}"
	defaultRunNotifyTemplate     = "Batch finished on {{hostname}}: {{original_size}} -> {{new_size}} (saved {{saved_size}})"
	minQuality                   = 0
	maxQuality                   = 51
	defaultNotifyTaskEnabled     = true
	defaultNotifyRunEnabled      = true
	defaultEncodingReencode      = false
)

var defaultExtensions = []string{
	"mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v", "mpg", "mpeg", "ts", "m2ts",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Encoding: Encoding{
			Quality:    defaultQuality,
			Preset:     defaultPreset,
			Reencode:   defaultEncodingReencode,
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Benchmark: Benchmark{
			MaxAgeHours:  defaultBenchmarkMaxAgeHours,
			ProbeSeconds: defaultBenchmarkProbeSeconds,
			Resolution:   defaultBenchmarkResolution,
		},
		Scheduler: Scheduler{
			TickMillis:       defaultTickMillis,
			DrainTicks:       defaultDrainTicks,
			SettleSeconds:    defaultSettleSeconds,
			KillGraceSeconds: defaultKillGraceSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Task:           defaultNotifyTaskEnabled,
			Run:            defaultNotifyRunEnabled,
			TaskTemplate:   defaultTaskNotifyTemplate,
			RunTemplate:    defaultRunNotifyTemplate,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
