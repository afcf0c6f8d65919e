package app_config

import (
	"io/ioutil"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

// This is the desk config for client startup customization.
type DeskAppConfig struct {
	// Backend origin all REST fetches and the push channel resolve against.
	// Overridable by the -origin flag and the NEWSDESK_API_BASE env variable.
	API_BASE_URL string `yaml:"API_BASE_URL"`
	// Number of news items requested per fetch.
	PAGE_SIZE int `yaml:"PAGE_SIZE"`
	// Push channel heartbeat cadence.
	HEARTBEAT_SECOND int64 `yaml:"HEARTBEAT_SECOND"`
	// Initial reconnect backoff for the push channel.
	BACKOFF_INITIAL_MS int64 `yaml:"BACKOFF_INITIAL_MS"`
	// Reconnect backoff cap for the push channel.
	BACKOFF_MAX_MS int64 `yaml:"BACKOFF_MAX_MS"`
	// Dogstatsd address for refresh metrics. Empty disables metric reporting.
	STATSD_ADDRESS string `yaml:"STATSD_ADDRESS"`
}

func DefaultDeskAppConfig() DeskAppConfig {
	return DeskAppConfig{
		API_BASE_URL:       "http://localhost:8000",
		PAGE_SIZE:          30,
		HEARTBEAT_SECOND:   20,
		BACKOFF_INITIAL_MS: 1000,
		BACKOFF_MAX_MS:     30000,
	}
}

// ParseDeskAppConfig reads the yaml app config at path, falling back to the
// built-in defaults when no path is provided. Values absent from the yaml
// keep their default.
func ParseDeskAppConfig(path string) DeskAppConfig {
	c := DefaultDeskAppConfig()
	if path == "" {
		return c
	}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("app config %s not found, using defaults", path)
			return c
		}
		log.Fatal("yamlFile. get err: ", err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &c)
	if err != nil {
		log.Fatal("Unmarshal: ", err)
	}
	return c
}
