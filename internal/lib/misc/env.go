/*
 * Copyright (c) 2022. TxnLab Inc.
 * All Rights reserved.
 */

package misc

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnvSettings loads .env.local then .env from the working directory.  Values already present in the
// environment are never overwritten, so .env.local wins over .env.
func LoadEnvSettings(logger *slog.Logger) {
	for _, name := range []string{".env.local", ".env"} {
		loadIfPresent(logger, name)
	}
}

// LoadEnvForNetwork loads .env.{network} overrides - ie: .env.devnet containing a devnet mint and authority.
func LoadEnvForNetwork(logger *slog.Logger, network string) {
	loadIfPresent(logger, fmt.Sprintf(".env.%s", network))
}

// LoadEnvFile loads an explicitly named env file, which unlike the implicit files, must exist.
func LoadEnvFile(logger *slog.Logger, envFile string) error {
	Infof(logger, "loading env file:%s", envFile)
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("unable to load env file:%s, error:%w", envFile, err)
	}
	return nil
}

func loadIfPresent(logger *slog.Logger, name string) {
	err := godotenv.Load(name)
	switch {
	case err == nil:
		Debugf(logger, "loaded env file:%s", name)
	case errors.Is(err, fs.ErrNotExist):
	default:
		Warnf(logger, "unable to parse env file:%s, error:%v", name, err)
	}
}
