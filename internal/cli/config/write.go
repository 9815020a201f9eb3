package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Write stores cfg as a config file at path. The format follows the file
// extension.
func Write(cfg *Config, path string) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	v := viper.New()
	for key, value := range cfg.Settings() {
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Settings flattens cfg into viper keys
func (c *Config) Settings() map[string]any {
	resources := make([]map[string]any, 0, len(c.Resources))
	for _, r := range c.Resources {
		resources = append(resources, r.settings())
	}

	return map[string]any{
		"server.port":             c.Server.Port,
		"server.host":             c.Server.Host,
		"server.api_prefix":       c.Server.APIPrefix,
		"server.read_timeout":     c.Server.ReadTimeout.String(),
		"server.write_timeout":    c.Server.WriteTimeout.String(),
		"server.idle_timeout":     c.Server.IdleTimeout.String(),
		"server.request_timeout":  c.Server.RequestTimeout.String(),
		"server.shutdown_timeout": c.Server.ShutdownTimeout.String(),
		"server.show_details":     c.Server.ShowDetails,
		"server.pprof":            c.Server.Pprof,

		"server.cors.enabled":           c.Server.CORS.Enabled,
		"server.cors.allowed_origins":   c.Server.CORS.AllowedOrigins,
		"server.cors.allow_credentials": c.Server.CORS.AllowCredentials,
		"server.cors.max_age":           c.Server.CORS.MaxAge,

		"log.level":  c.Log.Level,
		"log.format": c.Log.Format,

		"store.driver":   c.Store.Driver,
		"store.uri":      c.Store.URI,
		"store.database": c.Store.Database,
		"store.timeout":  c.Store.Timeout.String(),

		"tracking.log":                  c.Tracking.Log,
		"tracking.workers":              c.Tracking.Workers,
		"tracking.buffer":               c.Tracking.Buffer,
		"tracking.redis.addr":           c.Tracking.Redis.Addr,
		"tracking.redis.db":             c.Tracking.Redis.DB,
		"tracking.redis.stream":         c.Tracking.Redis.Stream,
		"tracking.redis.max_len":        c.Tracking.Redis.MaxLen,
		"tracking.prometheus.enabled":   c.Tracking.Prometheus.Enabled,
		"tracking.prometheus.namespace": c.Tracking.Prometheus.Namespace,
		"tracking.prometheus.path":      c.Tracking.Prometheus.Path,

		"resources": resources,
	}
}

func (r ResourceConfig) settings() map[string]any {
	fields := make([]map[string]any, 0, len(r.Fields))
	for _, f := range r.Fields {
		fields = append(fields, map[string]any{"name": f.Name, "type": f.Type})
	}
	refs := make([]map[string]any, 0, len(r.Refs))
	for _, ref := range r.Refs {
		refs = append(refs, map[string]any{"field": ref.Field, "collection": ref.Collection, "many": ref.Many})
	}
	populate := make([]map[string]any, 0, len(r.Populate))
	for _, p := range r.Populate {
		populate = append(populate, map[string]any{"field": p.Field, "select": p.Select})
	}

	return map[string]any{
		"path":         r.Path,
		"name":         r.Name,
		"collection":   r.Collection,
		"fields":       fields,
		"refs":         refs,
		"query_params": r.QueryParams,
		"populate":     populate,
		"limit_fields": r.LimitFields,
		"bulk_post":    r.BulkPost,
		"per_page":     r.PerPage,
		"sort_field":   r.SortField,
		"cascade":      r.Cascade,
		"rate_limit": map[string]any{
			"limit":  r.RateLimit.Limit,
			"window": r.RateLimit.Window.String(),
		},
	}
}

// Default returns the configuration used when no file exists
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, err := Decode(v)
	if err != nil {
		// Defaults are static and always valid
		panic(err)
	}
	return cfg
}
