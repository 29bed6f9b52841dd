package networks

import (
	"strings"
	"testing"
)

func TestGetKnownNetworks(t *testing.T) {
	cases := []struct {
		name    string
		chainID int64
	}{
		{"ethereum", 1},
		{"polygon", 137},
		{"bsc", 56},
		{"arbitrum", 42161},
		{"optimism", 10},
		{"base", 8453},
		{"gnosis", 100},
		{"sepolia", 11155111},
	}

	for _, tc := range cases {
		n, err := Get(tc.name)
		if err != nil {
			t.Fatalf("Get(%q): %v", tc.name, err)
		}
		if n.ChainID != tc.chainID {
			t.Errorf("Get(%q).ChainID = %d, want %d", tc.name, n.ChainID, tc.chainID)
		}
		if n.ServiceBaseURL == "" || !strings.HasPrefix(n.ServiceBaseURL, "https://") {
			t.Errorf("Get(%q) has invalid service URL %q", tc.name, n.ServiceBaseURL)
		}
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	n, err := Get("Ethereum")
	if err != nil {
		t.Fatalf("Get(Ethereum): %v", err)
	}
	if n.ChainID != 1 {
		t.Errorf("ChainID = %d, want 1", n.ChainID)
	}
}

func TestGetUnknownNetwork(t *testing.T) {
	if _, err := Get("dogecoin"); err == nil {
		t.Fatal("expected error for unknown network")
	}
	if IsSupported("dogecoin") {
		t.Fatal("IsSupported(dogecoin) = true")
	}
}

func TestLinks(t *testing.T) {
	n, _ := Get("ethereum")
	addr := "0x12345abcDE12345abcDE12345abcDE12345abcDE"

	if got := n.SafeAppURL(addr); got != "https://app.safe.global/home?safe=eth:"+addr {
		t.Errorf("SafeAppURL = %q", got)
	}
	if got := n.ExplorerAddressURL(addr); got != "https://etherscan.io/address/"+addr {
		t.Errorf("ExplorerAddressURL = %q", got)
	}
	if got := n.ExplorerTxURL("0xdead"); got != "https://etherscan.io/tx/0xdead" {
		t.Errorf("ExplorerTxURL = %q", got)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != 8 {
		t.Fatalf("len(Names()) = %d, want 8", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names() not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
}
