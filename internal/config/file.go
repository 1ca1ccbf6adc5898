package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// applyFileDefaults reads a flat YAML document of KEY: value pairs and exports every
// key that is not already present in the environment.
func applyFileDefaults(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	for key, raw := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		val, err := scalarString(raw)
		if err != nil {
			return fmt.Errorf("config file key %s: %w", key, err)
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("export %s: %w", key, err)
		}
	}
	return nil
}

func scalarString(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", raw)
	}
}
