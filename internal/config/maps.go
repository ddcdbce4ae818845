package config

type MapsConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Enabled: getEnvAsBool("MAPS_ENABLED", false),
		APIKey:  getEnv("GOOGLE_MAPS_API_KEY", ""),
	}
}
