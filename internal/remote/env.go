package remote

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// ParseEnv merges env files and -e assignments into remote shell
// assignments. Later files override earlier ones and -e values override
// every file. Keys keep the position of their first appearance; keys
// within one file are taken in sorted order.
func ParseEnv(vars []string, files []string) ([]string, error) {
	flagValues := make([][2]string, 0, len(vars))
	for _, item := range vars {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, &InputError{Msg: fmt.Sprintf("Invalid env var '%s'. Use KEY=VALUE.", item)}
		}
		flagValues = append(flagValues, [2]string{key, value})
	}

	var order []string
	values := map[string]string{}
	set := func(key, value string) {
		if _, ok := values[key]; !ok {
			order = append(order, key)
		}
		values[key] = value
	}

	for _, path := range files {
		fileValues, err := readEnvFile(path)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(fileValues))
		for key := range fileValues {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			set(key, fileValues[key])
		}
	}
	for _, kv := range flagValues {
		set(kv[0], kv[1])
	}

	assignments := make([]string, 0, len(order))
	for _, key := range order {
		assignments = append(assignments, key+"="+shellQuote(values[key]))
	}
	return assignments, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &InputError{Msg: fmt.Sprintf("Env file not found: %s", path)}
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, &InputError{Msg: fmt.Sprintf("Invalid env file %s: %v", path, err)}
	}
	return values, nil
}
