package sol

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/TxnLab/splstake/internal/lib/misc"
)

// Networks lists the network names accepted by GetNetworkConfig.
var Networks = []string{"devnet", "testnet", "mainnet-beta", "localnet"}

type NetworkConfig struct {
	Name string

	RPCURL     string
	RPCHeaders map[string]string

	// ExplorerCluster is the explorer.solana.com cluster query value - empty for mainnet
	ExplorerCluster string
}

func (n NetworkConfig) String() string {
	return fmt.Sprintf("Name: %s, RPCURL: %s, RPCHeaders: (count:%d), ExplorerCluster: %s", n.Name, n.RPCURL, len(n.RPCHeaders), n.ExplorerCluster)
}

// ExplorerTxURL returns the explorer link for a transaction signature on this network.
func (n NetworkConfig) ExplorerTxURL(signature string) string {
	link := "https://explorer.solana.com/tx/" + signature
	switch {
	case n.ExplorerCluster == "":
	case n.Name == "localnet":
		link += "?cluster=custom&customUrl=" + url.QueryEscape(n.RPCURL)
	default:
		link += "?cluster=" + url.QueryEscape(n.ExplorerCluster)
	}
	return link
}

func IsValidNetwork(network string) bool {
	return slices.Contains(Networks, network)
}

// GetNetworkConfig returns the defaults for the named network, with the rpc url and headers overridable
// via the SOL_RPC_URL and SOL_RPC_HEADERS secrets.
func GetNetworkConfig(network string) NetworkConfig {
	cfg := getDefaults(network)

	if rpcURL := misc.GetSecret("SOL_RPC_URL"); rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	// parse headers from key:value,[key:value...] pairs - ie: for rpc providers requiring api keys in headers
	cfg.RPCHeaders = map[string]string{}
	for _, header := range strings.Split(misc.GetSecret("SOL_RPC_HEADERS"), ",") {
		parts := strings.SplitN(header, ":", 2) // Just split on first : - they can have :'s in value.
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			cfg.RPCHeaders[key] = value
		}
	}
	return cfg
}

func getDefaults(network string) NetworkConfig {
	cfg := NetworkConfig{Name: network}
	switch network {
	case "mainnet-beta":
		cfg.RPCURL = "https://api.mainnet-beta.solana.com"
	case "testnet":
		cfg.RPCURL = "https://api.testnet.solana.com"
		cfg.ExplorerCluster = "testnet"
	case "devnet":
		cfg.RPCURL = "https://api.devnet.solana.com"
		cfg.ExplorerCluster = "devnet"
	case "localnet":
		cfg.RPCURL = "http://localhost:8899"
		cfg.ExplorerCluster = "custom"
	}
	return cfg
}
