package config

type PushConfig struct {
	Enabled            bool   `yaml:"enabled"`
	FCMCredentialsFile string `yaml:"fcm_credentials_file"`
}

func loadPushConfig() *PushConfig {
	return &PushConfig{
		Enabled:            getEnvAsBool("PUSH_ENABLED", false),
		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
	}
}
