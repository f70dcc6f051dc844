/*
Package config loads ipcbridge client configuration from YAML or JSON.

Config wraps decoded map data with typed accessors that fall back to a
default on a missing key or a type mismatch:

	cfg, err := config.FromFile("ipcbridge.yaml")
	if err != nil {
	    return err
	}
	timeout := cfg.Sub("nats").Duration("connect_timeout", 5*time.Second)

String values may reference the environment. Expand replaces ${NAME} and
${NAME:-fallback} throughout the tree:

	cfg, err = cfg.Expand(os.LookupEnv)

Settings is the validated, typed form used to build a client:

	settings, err := config.SettingsFrom(cfg)

Duration accepts strings ("30s", "1h30m"), bare numbers as seconds, and
time.Duration values. Int accepts whole floats, which is how encoding/json
decodes numbers.

Config is safe for concurrent reads as long as the source map is not
modified after loading.
*/
package config
