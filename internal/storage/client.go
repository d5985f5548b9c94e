// Package storage archives raw page HTML in Elasticsearch so scans can
// be re-evaluated without refetching.
package storage

import (
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/aeoscan/internal/logger"
)

// Config holds Elasticsearch connection settings.
type Config struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	APIKey    string   `mapstructure:"api_key"`
}

// NewClient creates and verifies an Elasticsearch client.
func NewClient(cfg Config, log logger.Interface) (*es.Client, error) {
	clientConfig := es.Config{
		Addresses: cfg.Addresses,
	}

	// API key auth wins over basic auth when both are set.
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}

	log.Debug("connected to Elasticsearch", "addresses", cfg.Addresses)

	return client, nil
}
