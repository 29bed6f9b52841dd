package safehash

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSafe    = "0x1c8b9B78e3085866521FE206fa4c1a67F49f153A"
	testChainID = int64(1)
)

func fixtureFields() TxFields {
	return TxFields{
		To:             "0xd0Ee2B8D3a4D2e5F5fA1b9e3F4d8E7C6B5A49382",
		Value:          "1000000000000000000",
		Data:           "0x",
		Operation:      0,
		SafeTxGas:      "0",
		BaseGas:        "0",
		GasPrice:       "0",
		GasToken:       "",
		RefundReceiver: "",
		Nonce:          42,
	}
}

// word left-pads to a 32-byte ABI word, for building reference encodings
// independently of the package helpers.
func word(b []byte) []byte { return common.LeftPadBytes(b, 32) }

func uintWord(v *big.Int) []byte { return common.LeftPadBytes(v.Bytes(), 32) }

func TestPublishedTypehashes(t *testing.T) {
	// Constants published in the Safe contracts.
	assert.Equal(t,
		"0x47e79534a245952e8b16893a336b85a3d9ea9fa8c573f3d803afb92a79469218",
		"0x"+hex.EncodeToString(domainTypehash),
		"DOMAIN_SEPARATOR_TYPEHASH (>= 1.3.0)")
	assert.Equal(t,
		"0xbb8310d486368db6bd6f849402fdd73ad53d316b5a4b2644ad6efe0f941286d8",
		"0x"+hex.EncodeToString(safeTxTypehash),
		"SAFE_TX_TYPEHASH (>= 1.0.0)")
}

func TestCalculateMatchesReferenceEncoding(t *testing.T) {
	fields := fixtureFields()

	// Reference encoding spelled out field by field, per EIP-712 and the
	// Safe 1.3.0 contract.
	domain := crypto.Keccak256(
		word(crypto.Keccak256([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))),
		uintWord(big.NewInt(testChainID)),
		word(common.HexToAddress(testSafe).Bytes()),
	)
	value, _ := new(big.Int).SetString(fields.Value, 10)
	message := crypto.Keccak256(
		word(crypto.Keccak256([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))),
		word(common.HexToAddress(fields.To).Bytes()),
		uintWord(value),
		word(crypto.Keccak256(nil)),
		uintWord(big.NewInt(0)), // operation
		uintWord(big.NewInt(0)), // safeTxGas
		uintWord(big.NewInt(0)), // baseGas
		uintWord(big.NewInt(0)), // gasPrice
		word(common.Address{}.Bytes()),
		word(common.Address{}.Bytes()),
		uintWord(big.NewInt(42)),
	)
	want := crypto.Keccak256([]byte{0x19, 0x01}, domain, message)

	got := Calculate(fields, "1.3.0", testChainID, testSafe)
	require.Equal(t, "0x"+hex.EncodeToString(domain), got.DomainHash)
	require.Equal(t, "0x"+hex.EncodeToString(message), got.MessageHash)
	require.Equal(t, "0x"+hex.EncodeToString(want), got.TxHash)
}

func TestDomainHashVersionBranching(t *testing.T) {
	// 1.1.1 must use the legacy typehash without the chain id.
	legacy := crypto.Keccak256(
		word(crypto.Keccak256([]byte("EIP712Domain(address verifyingContract)"))),
		word(common.HexToAddress(testSafe).Bytes()),
	)
	got111 := Calculate(fixtureFields(), "1.1.1", testChainID, testSafe)
	assert.Equal(t, "0x"+hex.EncodeToString(legacy), got111.DomainHash)

	// 1.3.0 must include the chain id, so the domain hash changes with it.
	got130 := Calculate(fixtureFields(), "1.3.0", testChainID, testSafe)
	got130Poly := Calculate(fixtureFields(), "1.3.0", 137, testSafe)
	assert.NotEqual(t, got111.DomainHash, got130.DomainHash)
	assert.NotEqual(t, got130.DomainHash, got130Poly.DomainHash)

	// The legacy domain ignores the chain id entirely.
	got111Poly := Calculate(fixtureFields(), "1.1.1", 137, testSafe)
	assert.Equal(t, got111.DomainHash, got111Poly.DomainHash)

	// L2 build suffix must not demote the version.
	gotL2 := Calculate(fixtureFields(), "1.3.0+L2", testChainID, testSafe)
	assert.Equal(t, got130.DomainHash, gotL2.DomainHash)
}

func TestMessageHashUsesDataGasBelowOneOh(t *testing.T) {
	fields := fixtureFields()
	fields.BaseGas = "21000"

	value, _ := new(big.Int).SetString(fields.Value, 10)
	legacyMessage := crypto.Keccak256(
		word(crypto.Keccak256([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 dataGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))),
		word(common.HexToAddress(fields.To).Bytes()),
		uintWord(value),
		word(crypto.Keccak256(nil)),
		uintWord(big.NewInt(0)),
		uintWord(big.NewInt(0)),
		uintWord(big.NewInt(21000)), // encoded in the dataGas slot
		uintWord(big.NewInt(0)),
		word(common.Address{}.Bytes()),
		word(common.Address{}.Bytes()),
		uintWord(big.NewInt(42)),
	)

	got := Calculate(fields, "0.9.0", testChainID, testSafe)
	assert.Equal(t, "0x"+hex.EncodeToString(legacyMessage), got.MessageHash)

	// 1.0.0 and above switch to the baseGas typehash.
	got100 := Calculate(fields, "1.0.0", testChainID, testSafe)
	assert.NotEqual(t, got.MessageHash, got100.MessageHash)
}

func TestAbsentFieldsDefaultToZero(t *testing.T) {
	sparse := TxFields{To: fixtureFields().To, Nonce: 42, Value: "1000000000000000000"}
	explicit := fixtureFields()

	gotSparse := Calculate(sparse, "1.3.0", testChainID, testSafe)
	gotExplicit := Calculate(explicit, "1.3.0", testChainID, testSafe)
	assert.Equal(t, gotExplicit.TxHash, gotSparse.TxHash)
}

func TestVerify(t *testing.T) {
	fields := fixtureFields()
	res := Calculate(fields, "1.3.0", testChainID, testSafe)

	v := Verify(fields, "1.3.0", testChainID, testSafe, strings.ToUpper(res.TxHash))
	assert.True(t, v.Verified, "comparison must be case-insensitive")
	assert.Equal(t, res.TxHash, v.ComputedHash)

	bad := Verify(fields, "1.3.0", testChainID, testSafe,
		"0x00000000000000000000000000000000000000000000000000000000000000ff")
	assert.False(t, bad.Verified)
	assert.NotEmpty(t, bad.ComputedHash)
	assert.NotEmpty(t, bad.ReportedHash)
}

func TestVerifyDetectsFieldTampering(t *testing.T) {
	fields := fixtureFields()
	res := Calculate(fields, "1.3.0", testChainID, testSafe)

	tampered := fields
	tampered.Value = "2000000000000000000"
	v := Verify(tampered, "1.3.0", testChainID, testSafe, res.TxHash)
	assert.False(t, v.Verified)
}
