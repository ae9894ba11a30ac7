// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for optional .env files and
// github.com/caarlos0/env/v11 for parsing struct fields annotated with
// env and envDefault tags. Every package with settings (apiclient,
// credential, authsession) declares its own Config struct and the CLI
// loads them through Load:
//
//	var cfg credential.Config
//	if err := config.Load(&cfg, config.WithEnvFiles(".env")); err != nil {
//	    return err
//	}
//
// Variables already set in the environment win over values from files.
// Errors wrap ErrParsingConfig or ErrLoadingEnvFile.
package config
