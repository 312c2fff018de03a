package config

import (
	"fmt"
	"net/url"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the transfer client
const (
	EnvAptosNetwork         = "APTOS_NETWORK"
	EnvAptosNodeURL         = "APTOS_NODE_URL"
	EnvAptosFaucetURL       = "APTOS_FAUCET_URL"
	EnvAptosPersistenceType = "APTOS_PERSISTENCE_TYPE"
	EnvAptosDataPath        = "APTOS_DATA_PATH"
	EnvAptosRedisAddress    = "APTOS_REDIS_ADDRESS"
	EnvAptosMetricsAddr     = "APTOS_METRICS_ADDR"
	EnvAptosVerbose         = "APTOS_VERBOSE"
)

const (
	// CoinTransferFunction is the entry function used for single-asset transfers.
	CoinTransferFunction = "0x1::coin::transfer"

	// AptosCoinTypeTag is the only asset this client moves.
	AptosCoinTypeTag = "0x1::aptos_coin::AptosCoin"

	// AptosCoinStoreResource holds an account's balance of AptosCoinTypeTag.
	AptosCoinStoreResource = "0x1::coin::CoinStore<" + AptosCoinTypeTag + ">"
)

type NetworkName string

const (
	NetworkName_Devnet NetworkName = "devnet"
	NetworkName_Local  NetworkName = "local"
)

type NetworkConfig struct {
	NodeUrl   string `json:"nodeUrl" yaml:"nodeUrl"`
	FaucetUrl string `json:"faucetUrl" yaml:"faucetUrl"`
}

var NetworkConfigs = map[NetworkName]NetworkConfig{
	NetworkName_Devnet: {
		NodeUrl:   "https://fullnode.devnet.aptoslabs.com",
		FaucetUrl: "https://faucet.devnet.aptoslabs.com",
	},
	NetworkName_Local: {
		NodeUrl:   "http://127.0.0.1:8080",
		FaucetUrl: "http://127.0.0.1:8000",
	},
}

func GetNetworkConfig(name NetworkName) (NetworkConfig, error) {
	nc, ok := NetworkConfigs[name]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unsupported network: %s", name)
	}
	return nc, nil
}

// GetSupportedNetworksString returns supported network names for CLI help
func GetSupportedNetworksString() string {
	return fmt.Sprintf("%s, %s", NetworkName_Devnet, NetworkName_Local)
}

// GasConfig holds the static gas parameters stamped on every transaction request.
type GasConfig struct {
	MaxGasAmount    uint64
	GasUnitPrice    uint64
	GasCurrencyCode string
	// ExpirationSecs is added to the local wall clock to produce expiration_timestamp_secs
	ExpirationSecs int64
}

var DefaultGasConfig = GasConfig{
	MaxGasAmount:    2000,
	GasUnitPrice:    1,
	GasCurrencyCode: "XUS",
	ExpirationSecs:  600,
}

// PollConfig configures settlement polling. There is no backoff: every tick waits Interval.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

var DefaultPollConfig = PollConfig{
	Interval:    time.Second,
	MaxAttempts: 10,
}

type PersistenceType string

const (
	PersistenceType_Memory PersistenceType = "memory"
	PersistenceType_Badger PersistenceType = "badger"
	PersistenceType_Redis  PersistenceType = "redis"
)

// ClientConfig is the complete runtime configuration for the transfer CLI.
type ClientConfig struct {
	Network   NetworkName `json:"network"`
	NodeUrl   string      `json:"node_url"`
	FaucetUrl string      `json:"faucet_url"`

	PersistenceType PersistenceType `json:"persistence_type"`
	DataPath        string          `json:"data_path"`
	RedisAddress    string          `json:"redis_address"`

	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
}

// Validate checks the configuration and fills node/faucet URLs from the selected network when unset.
func (c *ClientConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Network == "" {
		c.Network = NetworkName_Devnet
	}
	nc, err := GetNetworkConfig(c.Network)
	if err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("network"), c.Network, []string{
			string(NetworkName_Devnet), string(NetworkName_Local),
		}))
	} else {
		if c.NodeUrl == "" {
			c.NodeUrl = nc.NodeUrl
		}
		if c.FaucetUrl == "" {
			c.FaucetUrl = nc.FaucetUrl
		}
	}

	if err := validateURL(c.NodeUrl); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("nodeUrl"), c.NodeUrl, err.Error()))
	}
	if err := validateURL(c.FaucetUrl); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("faucetUrl"), c.FaucetUrl, err.Error()))
	}

	if c.PersistenceType == "" {
		c.PersistenceType = PersistenceType_Memory
	}
	switch c.PersistenceType {
	case PersistenceType_Memory:
	case PersistenceType_Badger:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceType_Redis:
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"), "redisAddress is required for redis persistence"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("persistenceType"), c.PersistenceType, []string{
			string(PersistenceType_Memory), string(PersistenceType_Badger), string(PersistenceType_Redis),
		}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url host cannot be empty")
	}
	return nil
}
