package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Profile is the locally saved pool configuration.  Values fill in for flags/env vars not otherwise set.
type Profile struct {
	Network   string `json:"network,omitempty"`
	ProgramID string `json:"programId,omitempty"`
	Mint      string `json:"mint,omitempty"`
	Authority string `json:"authority,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Wallet    string `json:"wallet,omitempty"`
}

// profileDirOverride is only set by tests
var profileDirOverride string

func ConfigFilename() (string, error) {
	cfgDir := profileDirOverride
	if cfgDir == "" {
		var err error
		cfgDir, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}
	cfgPath := filepath.Join(cfgDir, "splstake", "splstake.json")
	err := os.MkdirAll(filepath.Dir(cfgPath), 0775) // user+group RWX, others RX
	if err != nil {
		return "", fmt.Errorf("error making directory:%s, error:%w", cfgDir, err)
	}
	return cfgPath, nil
}

func SaveProfile(profile *Profile) error {
	// Save the profile into the config file, by first saving into a temp file and then replacing the
	// config file only if successfully written.
	cfgName, err := ConfigFilename()
	if err != nil {
		return err
	}
	temp, err := os.CreateTemp(filepath.Dir(cfgName), filepath.Base(cfgName)+".*")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(temp)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(profile)
	if err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error saving profile: %w", err)
	}

	err = temp.Close()
	if err != nil {
		return err
	}

	err = os.Rename(temp.Name(), cfgName)
	if err != nil {
		return err
	}
	slog.Info("profile saved", "file", cfgName)
	return nil
}

func LoadProfile() (*Profile, error) {
	cfgName, err := ConfigFilename()
	if err != nil {
		return nil, err
	}
	file, err := os.Open(cfgName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var profile Profile
	err = json.NewDecoder(file).Decode(&profile)
	if err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", cfgName, err)
	}
	return &profile, nil
}
