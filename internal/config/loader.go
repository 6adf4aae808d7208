package config

// LoadFromEnv reads the worker configuration from the process environment,
// after an optional .env file in dev builds.
func LoadFromEnv() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return Load(FromEnviron())
}
