package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const envPrefix = "hashctl"

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type envVars struct {
	Environment  string `envconfig:"ENVIRONMENT" default:"prod"`
	SetDir       string `envconfig:"SET_DIR"`
	BenchWorkers int    `envconfig:"BENCH_WORKERS"`
}

// loadEnv reads dotenv, if present, and then the process environment.
// Variables already set in the environment win over the file.
func loadEnv(dotenv string) (envVars, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return envVars{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var env envVars
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return envVars{}, err
	}
	switch env.Environment {
	case EnvDev, EnvProd:
	default:
		return envVars{}, fmt.Errorf("unknown environment %q", env.Environment)
	}
	if env.BenchWorkers < 0 {
		return envVars{}, fmt.Errorf("bench workers must not be negative, got %d", env.BenchWorkers)
	}
	return env, nil
}

func newLogger(env envVars) (*zap.Logger, error) {
	if env.Environment == EnvDev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
