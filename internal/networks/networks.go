package networks

import (
	"fmt"
	"sort"
	"strings"
)

// Network describes one supported EVM network: its chain id, the Safe
// transaction-service endpoint for it, and explorer/app bases used to build
// notification links.
type Network struct {
	Name            string
	ChainID         int64
	ServiceBaseURL  string
	ExplorerBaseURL string
	// ShortName is the Safe app chain prefix (eth:0x...).
	ShortName string
}

// registry is the static network table. Service URLs may be overridden per
// network through configuration (self-hosted transaction services).
var registry = map[string]Network{
	"ethereum": {
		Name:            "ethereum",
		ChainID:         1,
		ServiceBaseURL:  "https://safe-transaction-mainnet.safe.global",
		ExplorerBaseURL: "https://etherscan.io",
		ShortName:       "eth",
	},
	"sepolia": {
		Name:            "sepolia",
		ChainID:         11155111,
		ServiceBaseURL:  "https://safe-transaction-sepolia.safe.global",
		ExplorerBaseURL: "https://sepolia.etherscan.io",
		ShortName:       "sep",
	},
	"polygon": {
		Name:            "polygon",
		ChainID:         137,
		ServiceBaseURL:  "https://safe-transaction-polygon.safe.global",
		ExplorerBaseURL: "https://polygonscan.com",
		ShortName:       "matic",
	},
	"bsc": {
		Name:            "bsc",
		ChainID:         56,
		ServiceBaseURL:  "https://safe-transaction-bsc.safe.global",
		ExplorerBaseURL: "https://bscscan.com",
		ShortName:       "bnb",
	},
	"arbitrum": {
		Name:            "arbitrum",
		ChainID:         42161,
		ServiceBaseURL:  "https://safe-transaction-arbitrum.safe.global",
		ExplorerBaseURL: "https://arbiscan.io",
		ShortName:       "arb1",
	},
	"optimism": {
		Name:            "optimism",
		ChainID:         10,
		ServiceBaseURL:  "https://safe-transaction-optimism.safe.global",
		ExplorerBaseURL: "https://optimistic.etherscan.io",
		ShortName:       "oeth",
	},
	"base": {
		Name:            "base",
		ChainID:         8453,
		ServiceBaseURL:  "https://safe-transaction-base.safe.global",
		ExplorerBaseURL: "https://basescan.org",
		ShortName:       "base",
	},
	"gnosis": {
		Name:            "gnosis",
		ChainID:         100,
		ServiceBaseURL:  "https://safe-transaction-gnosis-chain.safe.global",
		ExplorerBaseURL: "https://gnosisscan.io",
		ShortName:       "gno",
	},
}

// Get looks up a network by name (case-insensitive).
func Get(name string) (Network, error) {
	n, ok := registry[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q", name)
	}
	return n, nil
}

// IsSupported reports whether the network name is in the registry.
func IsSupported(name string) bool {
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// Names returns the supported network names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SafeAppURL builds the Safe web-app link for a wallet.
func (n Network) SafeAppURL(safeAddress string) string {
	return fmt.Sprintf("https://app.safe.global/home?safe=%s:%s", n.ShortName, safeAddress)
}

// ExplorerAddressURL builds the block-explorer link for an address.
func (n Network) ExplorerAddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", n.ExplorerBaseURL, address)
}

// ExplorerTxURL builds the block-explorer link for an executed transaction.
func (n Network) ExplorerTxURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", n.ExplorerBaseURL, txHash)
}
