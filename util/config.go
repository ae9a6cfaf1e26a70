package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "tubefed"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host         string
		HttpPort     int    `yaml:"httpPort"`
		SslDomain    string `yaml:"sslDomain"`
		DatabaseFile string `yaml:"databaseFile"`
		// Closed instances reject Follow activities from unknown actors.
		Closed bool `yaml:"closed"`
		// ModerateComments holds incoming comments on local videos for
		// review instead of forwarding them right away.
		ModerateComments bool `yaml:"moderateComments"`
	}
}

// BaseURL returns the public https base URL of this node.
func (c *AppConfig) BaseURL() string {
	return fmt.Sprintf("https://%s", c.Conf.SslDomain)
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("TUBEFED_HOST")
	envHttpPort := os.Getenv("TUBEFED_HTTPPORT")
	envSslDomain := os.Getenv("TUBEFED_SSLDOMAIN")
	envDatabaseFile := os.Getenv("TUBEFED_DATABASE")
	envClosed := os.Getenv("TUBEFED_CLOSED")
	envModerateComments := os.Getenv("TUBEFED_MODERATE_COMMENTS")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envSslDomain != "" {
		c.Conf.SslDomain = envSslDomain
	}

	if envDatabaseFile != "" {
		c.Conf.DatabaseFile = envDatabaseFile
	}

	if envClosed == "true" {
		c.Conf.Closed = true
	}

	if envModerateComments == "true" {
		c.Conf.ModerateComments = true
	}

	return c, nil
}
