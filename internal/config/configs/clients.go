package configs

import "time"

// Clients configures the external service adapters. Credentials left
// empty switch the corresponding adapter into simulation mode, which
// keeps local runs and demos working without real accounts.
type Clients struct {
	// OpenRouterAPIKey authorizes copy and image-prompt generation calls.
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	// OpenRouterModel is the chat model used for ad copy.
	OpenRouterModel string `env:"OPENROUTER_MODEL" envDefault:"openai/gpt-4o-mini"`
	// OpenRouterBaseURL allows pointing at a proxy in tests.
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	// RequestTimeout bounds each outbound client call.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	// MetaAccessToken enables the real Meta adapter when set.
	MetaAccessToken string `env:"META_ACCESS_TOKEN"`
	// GoogleDeveloperToken enables the real Google adapter when set.
	GoogleDeveloperToken string `env:"GOOGLE_DEVELOPER_TOKEN"`
	// BreakerThreshold is the consecutive-failure count that opens a
	// client circuit breaker.
	BreakerThreshold int `env:"BREAKER_THRESHOLD" envDefault:"5"`
	// BreakerCoolOff is how long an open breaker rejects calls.
	BreakerCoolOff time.Duration `env:"BREAKER_COOL_OFF" envDefault:"1m"`
}
