package node

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Server struct {
		Host string `envconfig:"SERVER_HOST"`
		Port int    `envconfig:"SERVER_PORT" default:"8420"`
	}
	Storage struct {
		Path        string `envconfig:"STORAGE_PATH" default:"./data"`
		AllocatedGB int    `envconfig:"ALLOCATED_GB" default:"100"`
	}
	Coordinator struct {
		URL string `envconfig:"COORDINATOR_URL" default:"https://pjhq.dev/api"`
	}
	// NodeID is generated when absent and pinned by the metadata file for
	// the life of the storage directory.
	NodeID string `envconfig:"NODE_ID"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AllocatedBytes converts the configured allocation to bytes.
func (c *Config) AllocatedBytes() int64 {
	return int64(c.Storage.AllocatedGB) * 1024 * 1024 * 1024
}
