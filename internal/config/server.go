package config

// GetListenAddr returns the address the gateway HTTP server binds to
func GetListenAddr() string {
	return ":" + GetEnvOrDefault("PORT", "8080")
}
