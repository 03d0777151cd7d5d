package api

const (
	defaultParseRate     = 20
	defaultParseBurst    = 40
	defaultMaxTextLength = 1000
)

type settings struct {
	parseRate      float64
	parseBurst     int
	maxTextLength  int
	trustForwarded bool
}

func defaultSettings() settings {
	return settings{
		parseRate:     defaultParseRate,
		parseBurst:    defaultParseBurst,
		maxTextLength: defaultMaxTextLength,
	}
}

// Option applies a configuration option to the Server.
type Option func(*settings)

// WithParseRateLimit limits parse requests per client to perSecond with
// the given burst. A non-positive rate disables limiting.
func WithParseRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		s.parseRate = perSecond
		if burst > 0 {
			s.parseBurst = burst
		}
	}
}

// WithMaxTextLength caps the rune length of texts sent for parsing.
func WithMaxTextLength(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxTextLength = n
		}
	}
}

// WithTrustedProxy keys rate limits on the first X-Forwarded-For entry.
// Enable it only when a proxy in front of the server sets that header.
func WithTrustedProxy(trust bool) Option {
	return func(s *settings) {
		s.trustForwarded = trust
	}
}
