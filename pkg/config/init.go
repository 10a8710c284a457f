package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfigTemplate is written out by InitConfig/InitConfigToPath. %s is
// replaced with a freshly generated JWT secret.
const sampleConfigTemplate = `# Lockbook Server Configuration File
#
# This file was generated by "lockbook-server init". Edit it to customize
# your deployment, or override any value with an LOCKBOOK_* environment
# variable (e.g. LOCKBOOK_SERVER_LISTEN_ADDR).

logging:
  level: "INFO"     # DEBUG, INFO, WARN, ERROR
  format: "text"    # text, json
  output: "stdout"  # stdout, stderr, or a file path

telemetry:
  enabled: false
  endpoint: "localhost:4317"
  insecure: true
  sample_rate: 1.0

metrics:
  enabled: false
  port: 9090

shutdown_timeout: 10s

server:
  listen_addr: ":8080"
  usage_cap: 5GB

  # A random secret was generated below for development use. For production,
  # generate a secure secret and set it via an environment variable instead
  # of committing it to this file:
  #   export LOCKBOOK_SERVER_JWT_SECRET=$(openssl rand -hex 32)
  jwt_secret: "%s"

  store:
    type: "memory"  # memory, badger
    badger:
      path: "/var/lib/lockbook/store"
      in_memory: false
      sync_writes: false

  docstore:
    type: "memory"  # memory, fs, s3
    fs:
      dir: "/var/lib/lockbook/docs"
    s3:
      bucket: ""
      region: "us-east-1"
      force_path_style: false

client:
  data_dir: ""
  in_memory: false
  server_url: "http://localhost:8080"
`

// InitConfig writes a sample configuration file to the default location
// ($XDG_CONFIG_HOME/lockbook/config.yaml, or ~/.config/lockbook/config.yaml),
// returning the path it wrote to. It refuses to overwrite an existing file
// unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, refusing to
// overwrite an existing file unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateJWTSecret()
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	content := fmt.Sprintf(sampleConfigTemplate, secret)

	// Restricted permissions (0600): the file carries a freshly generated secret.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateJWTSecret returns a 64-character hex string (32 bytes of entropy),
// matching the "openssl rand -hex 32" recipe this package's documentation
// recommends for production deployments.
func generateJWTSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
