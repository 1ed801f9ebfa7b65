package main

import (
	"fmt"
	"path/filepath"

	"github.com/Fantom-foundation/shardmap/go/backend/utils"
	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

const (
	configFileName = "shard.json"
	recordsDirName = "records"
)

// config is the content of the configuration file of a shard directory.
type config struct {
	Namespace       string
	Authority       string
	ValueSize       int
	DefaultMaxItems uint16
}

// newConfig creates a configuration with a fresh random namespace.
func newConfig(authority common.Address, valueSize int, maxItems uint16) config {
	id := uuid.New()
	namespace := common.Keccak256([]byte("namespace"), id[:])
	return config{
		Namespace:       hexutil.Encode(namespace[:]),
		Authority:       hexutil.Encode(authority[:]),
		ValueSize:       valueSize,
		DefaultMaxItems: maxItems,
	}
}

func readConfig(dir string) (config, error) {
	cfg, err := utils.ReadJsonFile[config](filepath.Join(dir, configFileName))
	if err != nil {
		return cfg, fmt.Errorf("failed to read configuration of %s: %w", dir, err)
	}
	return cfg, nil
}

func writeConfig(dir string, cfg config) error {
	return utils.WriteJsonFile(filepath.Join(dir, configFileName), cfg)
}

func (c config) namespace() (common.Address, error) {
	return parseAddress(c.Namespace)
}

func (c config) authority() (common.Address, error) {
	return parseAddress(c.Authority)
}

func parseAddress(s string) (common.Address, error) {
	var res common.Address
	bytes, err := hexutil.Decode(s)
	if err != nil {
		return res, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(bytes) != len(res) {
		return res, fmt.Errorf("invalid address %q: expected %d bytes, got %d", s, len(res), len(bytes))
	}
	copy(res[:], bytes)
	return res, nil
}
