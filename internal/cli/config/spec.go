package config

// CLIConfig is the configuration for kvmesh-cli.
type CLIConfig struct {
	DefaultServer string `yaml:"default_server"`
	DefaultOutput string `yaml:"default_output"` // table, json, yaml
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://localhost:8080",
		DefaultOutput: "table",
	}
}
