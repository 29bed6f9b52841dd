// Package safehash recomputes the EIP-712 transaction hash a Safe contract
// produces for a multisig transaction, so the value reported by the
// transaction service can be verified independently.
package safehash

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Typehashes as defined by the deployed Safe contracts. Contracts below
// 1.3.0 ship a domain separator without the chain id; contracts below 1.0.0
// name the second gas field dataGas instead of baseGas.
var (
	domainTypehash = crypto.Keccak256(
		[]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	domainTypehashLegacy = crypto.Keccak256(
		[]byte("EIP712Domain(address verifyingContract)"))
	safeTxTypehash = crypto.Keccak256(
		[]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
	safeTxTypehashLegacy = crypto.Keccak256(
		[]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 dataGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

// TxFields are the raw transaction fields the hash is computed from. Every
// field tolerates its zero value: empty addresses become the zero address,
// empty numerics become 0, empty data hashes as empty bytes.
type TxFields struct {
	To             string
	Value          string // decimal wei
	Data           string // 0x-prefixed hex
	Operation      int
	SafeTxGas      string
	BaseGas        string
	GasPrice       string
	GasToken       string
	RefundReceiver string
	Nonce          int64
}

// Result carries the three computed hashes, all 0x-prefixed lowercase hex.
type Result struct {
	DomainHash  string
	MessageHash string
	TxHash      string
}

// Verification is the outcome of comparing a computed hash against the value
// the transaction service reported.
type Verification struct {
	Verified     bool
	ComputedHash string
	ReportedHash string
	DomainHash   string
	MessageHash  string
}

// Calculate computes the Safe's domain hash, message hash, and combined
// transaction hash for the given wallet version, chain id, and address.
func Calculate(fields TxFields, version string, chainID int64, safeAddress string) Result {
	domain := domainHash(version, chainID, safeAddress)
	message := messageHash(version, fields)

	// keccak256(0x19 || 0x01 || domainHash || messageHash)
	txHash := crypto.Keccak256([]byte{0x19, 0x01}, domain, message)

	return Result{
		DomainHash:  hexutil(domain),
		MessageHash: hexutil(message),
		TxHash:      hexutil(txHash),
	}
}

// Verify recomputes the transaction hash and compares it byte-for-byte
// (case-insensitively) against the reported one.
func Verify(fields TxFields, version string, chainID int64, safeAddress, reportedHash string) Verification {
	res := Calculate(fields, version, chainID, safeAddress)
	return Verification{
		Verified:     strings.EqualFold(res.TxHash, reportedHash),
		ComputedHash: res.TxHash,
		ReportedHash: reportedHash,
		DomainHash:   res.DomainHash,
		MessageHash:  res.MessageHash,
	}
}

func domainHash(version string, chainID int64, safeAddress string) []byte {
	if versionBefore(version, 1, 3, 0) {
		return crypto.Keccak256(
			leftPad(domainTypehashLegacy),
			encodeAddress(safeAddress),
		)
	}
	return crypto.Keccak256(
		leftPad(domainTypehash),
		encodeInt(chainID),
		encodeAddress(safeAddress),
	)
}

func messageHash(version string, fields TxFields) []byte {
	typehash := safeTxTypehash
	if versionBefore(version, 1, 0, 0) {
		typehash = safeTxTypehashLegacy
	}

	return crypto.Keccak256(
		leftPad(typehash),
		encodeAddress(fields.To),
		encodeDecimal(fields.Value),
		leftPad(crypto.Keccak256(dataBytes(fields.Data))),
		encodeInt(int64(fields.Operation)),
		encodeDecimal(fields.SafeTxGas),
		encodeDecimal(fields.BaseGas),
		encodeDecimal(fields.GasPrice),
		encodeAddress(fields.GasToken),
		encodeAddress(fields.RefundReceiver),
		encodeInt(fields.Nonce),
	)
}

// leftPad returns b left-padded to a 32-byte ABI word. Hashes are already 32
// bytes; this keeps the encoding uniform.
func leftPad(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func encodeAddress(addr string) []byte {
	if addr == "" {
		addr = "0x0000000000000000000000000000000000000000"
	}
	return common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32)
}

func encodeDecimal(s string) []byte {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || s == "" {
		v = new(big.Int)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func encodeInt(v int64) []byte {
	return common.LeftPadBytes(new(big.Int).SetInt64(v).Bytes(), 32)
}

func dataBytes(data string) []byte {
	data = strings.TrimPrefix(data, "0x")
	if data == "" {
		return nil
	}
	b, err := hex.DecodeString(data)
	if err != nil {
		return nil
	}
	return b
}

func hexutil(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// versionBefore reports whether a contract version string like "1.1.1" or
// "1.3.0+L2" sorts strictly before major.minor.patch. Unparseable versions
// are treated as current, never legacy.
func versionBefore(version string, major, minor, patch int) bool {
	if i := strings.IndexByte(version, '+'); i >= 0 {
		version = version[:i]
	}
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) < 3 {
		return false
	}
	got := make([]int, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return false
		}
		got[i] = v
	}
	want := []int{major, minor, patch}
	for i := 0; i < 3; i++ {
		if got[i] != want[i] {
			return got[i] < want[i]
		}
	}
	return false
}
