/*
 * Copyright (c) 2022. TxnLab Inc.
 * All Rights reserved.
 */
package misc

import (
	"os"
	"slices"
	"strings"
	"sync"
)

var (
	secretsLock sync.RWMutex
	secretsMap  = map[string]string{}
)

// SetSecret registers a secret which isn't (or shouldn't be) in the process environment.  The
// environment still takes precedence in GetSecret.
func SetSecret(key, value string) {
	secretsLock.Lock()
	defer secretsLock.Unlock()
	secretsMap[key] = value
}

// SecretKeys returns the sorted, unique names of every environment variable and registered secret
func SecretKeys() []string {
	var uniqKeys = map[string]bool{}
	for _, envVal := range os.Environ() {
		if idx := strings.IndexByte(envVal, '='); idx > 0 {
			uniqKeys[envVal[0:idx]] = true
		}
	}
	secretsLock.RLock()
	for k := range secretsMap {
		uniqKeys[k] = true
	}
	secretsLock.RUnlock()

	retStrings := make([]string, 0, len(uniqKeys))
	for k := range uniqKeys {
		retStrings = append(retStrings, k)
	}
	slices.Sort(retStrings)
	return retStrings
}

// SecretKeysWithPrefix is SecretKeys filtered to names starting with prefix, ie: SOL_KEYPAIR
func SecretKeysWithPrefix(prefix string) []string {
	return slices.DeleteFunc(SecretKeys(), func(key string) bool {
		return !strings.HasPrefix(key, prefix)
	})
}

func GetSecret(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	secretsLock.RLock()
	defer secretsLock.RUnlock()
	return secretsMap[key]
}
