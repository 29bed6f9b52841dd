package analysis

import "strings"

// trustedDelegateTargets are the canonical Safe helper contracts that are
// legitimately used via delegate call: MultiSend, MultiSendCallOnly,
// SignMessageLib, CreateCall and the migration contract, across the deployed
// contract versions. A delegate call to anything else hands the target full
// control of the wallet.
var trustedDelegateTargets = map[string]string{
	// MultiSend
	"0x8d29be29923b68abfdd21e541b9374737b49cdad": "MultiSend 1.1.1",
	"0xa238cbeb142c10ef7ad8442c6d1f9e89e07e7761": "MultiSend 1.3.0",
	"0x38869bf66a61cf6bdb996a6ae40d5853fd43b526": "MultiSend 1.4.1",
	// MultiSendCallOnly
	"0x40a2accbd92bca938b02010e17a5b8929b49130d": "MultiSendCallOnly 1.3.0",
	"0x9641d764fc13c8b624c04430c7356c1c7c8102e2": "MultiSendCallOnly 1.4.1",
	// SignMessageLib
	"0xa65387f16b013cf2af4605ad8aa5ec25a2cba3a2": "SignMessageLib 1.3.0",
	"0xd53cd0ab83d845ac265be939c57f53ad838012c9": "SignMessageLib 1.4.1",
	// CreateCall
	"0x7cbb62eaa69f79e6873cd1ecb2392971036cfaa4": "CreateCall 1.3.0",
	// SafeMigration
	"0x526643f69b81b008f46d95cd5ced5ecbeca2f469": "SafeMigration 1.4.1",
}

// TrustedDelegateTarget reports whether the address is a canonical Safe
// helper contract, and which one.
func TrustedDelegateTarget(address string) (string, bool) {
	name, ok := trustedDelegateTargets[strings.ToLower(address)]
	return name, ok
}
