package postgres

import (
	"fmt"
)

// Config holds postgres loader settings.
type Config struct {
	Name             string
	ConnectionString string
	Table            string
	Kind             string
	Columns          []string
	IDColumn         string
	IDField          string
}

// ParseConfig builds a Config from step parameters.
func ParseConfig(params map[string]any) (*Config, error) {
	cfg := &Config{
		Name:             stringParam(params, "name"),
		ConnectionString: stringParam(params, "connection_string", "dsn"),
		Table:            stringParam(params, "table"),
		Kind:             stringParam(params, "kind", "entity"),
		IDColumn:         stringParam(params, "id_column"),
		IDField:          stringParam(params, "id_field"),
	}
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("postgres loader: connection_string is required")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("postgres loader: table is required")
	}
	if cfg.Kind == "" {
		cfg.Kind = cfg.Table
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.IDField == "" {
		cfg.IDField = "_" + cfg.Kind + "_id"
	}
	if cols, ok := params["columns"].([]any); ok {
		for _, c := range cols {
			cfg.Columns = append(cfg.Columns, fmt.Sprint(c))
		}
	}
	return cfg, nil
}

func stringParam(params map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := params[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
