package config

const (
	defaultAPIBaseURL          = "https://api.telegram.org"
	defaultRequestTimeout      = 15
	defaultPollTimeout         = 30
	defaultMessagesPerSecond   = 25
	defaultPerChatIntervalMS   = 1000
	defaultDataDir             = "~/.local/share/moderbot"
	defaultDatabaseName        = "moderbot.db"
	defaultLogDir              = "~/.local/share/moderbot/logs"
	defaultAPIBind             = "127.0.0.1:7590"
	defaultDailyPosts          = 5
	defaultMinPostLength       = 5
	defaultMaxPostLength       = 100
	defaultMinKeywordLength    = 2
	defaultRejectReasonTimeout = 60
	defaultRejectReasonGrace   = 10
	defaultBroadcastPerSecond  = 20
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultRequiredMarkers = []string{"🧑", "👩"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Telegram: Telegram{
			APIBaseURL:        defaultAPIBaseURL,
			RequestTimeout:    defaultRequestTimeout,
			PollTimeout:       defaultPollTimeout,
			MessagesPerSecond: defaultMessagesPerSecond,
			PerChatIntervalMS: defaultPerChatIntervalMS,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Limits: Limits{
			DailyPosts:          defaultDailyPosts,
			MinPostLength:       defaultMinPostLength,
			MaxPostLength:       defaultMaxPostLength,
			RequiredMarkers:     append([]string(nil), defaultRequiredMarkers...),
			MinKeywordLength:    defaultMinKeywordLength,
			RejectReasonTimeout: defaultRejectReasonTimeout,
			RejectReasonGrace:   defaultRejectReasonGrace,
			BroadcastPerSecond:  defaultBroadcastPerSecond,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
