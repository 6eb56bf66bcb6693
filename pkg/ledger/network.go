package ledger

import "fmt"

// Network selects which cluster the RPC client talks to.
type Network string

const (
	NetworkMainnet  Network = "mainnet-beta"
	NetworkDevnet   Network = "devnet"
	NetworkTestnet  Network = "testnet"
	NetworkLocalnet Network = "localnet"
)

var rpcEndpoints = map[Network]string{
	NetworkMainnet:  "https://api.mainnet-beta.solana.com",
	NetworkDevnet:   "https://api.devnet.solana.com",
	NetworkTestnet:  "https://api.testnet.solana.com",
	NetworkLocalnet: "http://localhost:8899",
}

// Endpoint resolves the RPC URL for a network. A custom URL overrides the
// network selection when non-empty.
func Endpoint(network Network, customURL string) (string, error) {
	if customURL != "" {
		return customURL, nil
	}
	url, ok := rpcEndpoints[network]
	if !ok {
		return "", fmt.Errorf("ledger: unknown network %q", network)
	}
	return url, nil
}
