package jwtutil

var defaultUtil *JWTUtil

// Initialize sets up the package-level utility from configuration. Called
// once at startup before any handler runs.
func Initialize(config *JWTConfig) {
	defaultUtil = NewJWTUtil(config)
}

// Default returns the package-level utility.
func Default() *JWTUtil {
	return defaultUtil
}
