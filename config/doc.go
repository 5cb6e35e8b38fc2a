// Package config loads service configuration with Viper.
//
// LoadConfig reads a config.yml found in the usual locations (or the file
// given with WithConfigFile), loads a .env file through godotenv, then lets
// environment variables override any key. Only variables carrying the prefix
// (FLOWKIT_ by default) are considered, with underscores mapped onto nesting:
//
//	FLOWKIT_SERVER_PORT=9090        -> server.port
//	FLOWKIT_LLM_API_KEY=sk-...      -> llm.api_key
//
// Application configs embed ServiceConfig for the fields every binary needs.
package config
