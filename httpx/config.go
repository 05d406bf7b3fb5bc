// Package httpx binds requests, runs validation and renders results for gin handlers.
package httpx

// ErrorLoggingConfig controls what HandleError writes to the log.
type ErrorLoggingConfig struct {
	Enable bool `mapstructure:"enable" json:"enable"`

	// IgnoreHTTPStatus lists statuses that are never logged, e.g. [401, 422].
	IgnoreHTTPStatus []int `mapstructure:"ignore_http_status" json:"ignore_http_status"`

	// FullErrorChain adds error_chain and the wrapped cause to the log line.
	FullErrorChain bool `mapstructure:"full_error_chain" json:"full_error_chain"`

	// LogLevel is error, warn or info.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

func DefaultErrorLoggingConfig() ErrorLoggingConfig {
	return ErrorLoggingConfig{
		Enable:           true,
		IgnoreHTTPStatus: []int{400, 401, 404, 409, 422, 429},
		FullErrorChain:   true,
		LogLevel:         "warn",
	}
}
