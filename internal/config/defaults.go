package config

const (
	defaultWatchDir  = "~/.local/share/shutterpost/upload"
	defaultFailedDir = "~/.local/share/shutterpost/failed"
	defaultLogDir    = "~/.local/share/shutterpost/logs"

	defaultQueueSize      = 4096
	defaultRescanInterval = 300

	defaultSettleDelayMS  = 500
	defaultRecheckDelayMS = 2000

	defaultUploadDelay     = 5
	defaultMaxPerHour      = 100
	defaultMaxPerDay       = 1000
	defaultBurstLimit      = 5
	defaultBurstWindowSecs = 60

	defaultConversionQuality = 95

	defaultCaptioningBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultCaptioningModel   = "gemini-1.5-flash-8b"
	defaultCaptioningTimeout = 30
	defaultCaptioningPrompt  = "Describe this image in 1-2 concise sentences. " +
		"Focus on the visual elements and describe what is in the image, " +
		"not any text it contains. Keep it brief and clear."

	defaultBlogBaseURL   = "https://api.tumblr.com/v2"
	defaultBlogPostState = "published"

	defaultNotifyRequestTimeout = 10

	defaultFailedRetentionDays = 30
	defaultSweepInterval       = 3600

	defaultEventPollInterval  = 1
	defaultErrorRetryInterval = 10
	defaultStopTimeout        = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultFileExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".avif", ".webp", ".bmp", ".tiff", ".tif"}
}

func defaultConvertFormats() []string {
	return []string{".bmp", ".tiff", ".tif", ".webp"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:  defaultWatchDir,
			FailedDir: defaultFailedDir,
			LogDir:    defaultLogDir,
		},
		Watcher: Watcher{
			AutoDiscover:   true,
			FileExtensions: defaultFileExtensions(),
			QueueSize:      defaultQueueSize,
			RescanInterval: defaultRescanInterval,
		},
		Readiness: Readiness{
			SettleDelayMS:  defaultSettleDelayMS,
			RecheckDelayMS: defaultRecheckDelayMS,
		},
		RateLimit: RateLimit{
			UploadDelay:     defaultUploadDelay,
			MaxPerHour:      defaultMaxPerHour,
			MaxPerDay:       defaultMaxPerDay,
			BurstLimit:      defaultBurstLimit,
			BurstWindowSecs: defaultBurstWindowSecs,
		},
		Conversion: Conversion{
			Enabled: true,
			Quality: defaultConversionQuality,
			Formats: defaultConvertFormats(),
		},
		Captioning: Captioning{
			BaseURL:        defaultCaptioningBaseURL,
			Model:          defaultCaptioningModel,
			Prompt:         defaultCaptioningPrompt,
			TimeoutSeconds: defaultCaptioningTimeout,
		},
		Blog: Blog{
			BaseURL:   defaultBlogBaseURL,
			PostState: defaultBlogPostState,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Uploads:        true,
			Errors:         true,
			Daemon:         true,
		},
		Cleanup: Cleanup{
			FailedRetentionDays: defaultFailedRetentionDays,
			SweepInterval:       defaultSweepInterval,
		},
		Workflow: Workflow{
			EventPollInterval:  defaultEventPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			StopTimeout:        defaultStopTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
