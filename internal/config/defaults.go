package config

const (
	defaultAPIBaseURL          = "http://localhost:3000"
	defaultAPITimeoutSeconds   = 30
	defaultStateDir            = "~/.local/share/mantrify"
	defaultLogDir              = "~/.local/share/mantrify/logs"
	defaultTitleMax            = 100
	defaultDescriptionMax      = 500
	defaultSpeedMin            = 0.7
	defaultSpeedMax            = 1.2
	defaultPauseMaxSeconds     = 300
	defaultPollIntervalSeconds = 5
	defaultStallAfterPolls     = 24
	defaultStallAfterSeconds   = 180
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// DefaultSounds is the sound catalog shipped with the client. The filename is
// the identifier the backend resolves.
func DefaultSounds() []Sound {
	return []Sound{
		{Name: "Rain", Filename: "rain.mp3"},
		{Name: "Ocean Waves", Filename: "ocean-waves.mp3"},
		{Name: "Singing Bowl", Filename: "singing-bowl.mp3"},
		{Name: "Forest Birds", Filename: "forest-birds.mp3"},
		{Name: "Wind Chimes", Filename: "wind-chimes.mp3"},
		{Name: "Meditation Bell", Filename: "meditation-bell.mp3"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Composition: Composition{
			TitleMax:        defaultTitleMax,
			DescriptionMax:  defaultDescriptionMax,
			SpeedMin:        defaultSpeedMin,
			SpeedMax:        defaultSpeedMax,
			PauseMaxSeconds: defaultPauseMaxSeconds,
		},
		Sounds: DefaultSounds(),
		Tracking: Tracking{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			StallAfterPolls:     defaultStallAfterPolls,
			StallAfterSeconds:   defaultStallAfterSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
