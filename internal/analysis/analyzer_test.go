package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-monitor/internal/models"
	"safe-monitor/internal/safehash"
)

const (
	analyzerSafe  = "0x1c8b9B78e3085866521FE206fa4c1a67F49f153A"
	someContract  = "0xCafE000000000000000000000000000000000001"
	multiSend130  = "0xA238CBeb142c10Ef7Ad8442C6D1f9E89e07e7761"
	randomAddress = "0xBadBadBadBadBadBadBadBadBadBadBadBadBad1"
)

// cleanTx builds a plain trusted transfer that trips no rules.
func cleanTx() *models.SafeTransaction {
	return &models.SafeTransaction{
		Safe:       analyzerSafe,
		SafeTxHash: "0xabc",
		To:         someContract,
		Value:      "0",
		Operation:  models.OperationCall,
		Nonce:      json.Number("3"),
		Trusted:    true,
	}
}

func analyze(t *testing.T, tx *models.SafeTransaction, opts Options) *Result {
	t.Helper()
	res := NewAnalyzer(DefaultNonceGapThreshold).Analyze(tx, analyzerSafe, opts)
	require.NotNil(t, res)
	return res
}

func detailTypes(res *Result) []string {
	types := make([]string, 0, len(res.Details))
	for _, d := range res.Details {
		types = append(types, d.Type)
	}
	return types
}

func findDetail(res *Result, typ string) (Detail, bool) {
	for _, d := range res.Details {
		if d.Type == typ {
			return d, true
		}
	}
	return Detail{}, false
}

func TestCleanTransferIsLowRisk(t *testing.T) {
	res := analyze(t, cleanTx(), Options{})
	assert.Equal(t, SeverityLow, res.RiskLevel)
	assert.False(t, res.IsSuspicious)
	assert.Empty(t, res.Details)
	assert.Equal(t, "transfer", res.CallType)
}

func TestGasParameterRules(t *testing.T) {
	t.Run("any non-default gas field is high", func(t *testing.T) {
		tx := cleanTx()
		tx.SafeTxGas = json.Number("50000")
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "gas_parameters")
		require.True(t, ok, "details: %v", detailTypes(res))
		assert.Equal(t, SeverityHigh, d.Severity)
		assert.Equal(t, SeverityHigh, res.RiskLevel)
		assert.True(t, res.IsSuspicious)
	})

	t.Run("gas token plus refund receiver is a distinct high finding", func(t *testing.T) {
		tx := cleanTx()
		tx.GasToken = someContract
		tx.RefundReceiver = randomAddress
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "gas_token_attack")
		require.True(t, ok)
		assert.Equal(t, SeverityHigh, d.Severity)
	})

	t.Run("adding non-zero gas price escalates to critical", func(t *testing.T) {
		tx := cleanTx()
		tx.GasToken = someContract
		tx.RefundReceiver = randomAddress
		tx.GasPrice = json.Number("1000000000")
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "gas_token_attack")
		require.True(t, ok)
		assert.Equal(t, SeverityCritical, d.Severity)
		assert.Equal(t, SeverityCritical, res.RiskLevel)
		assert.True(t, res.IsSuspicious)
	})

	t.Run("lone gas token is medium", func(t *testing.T) {
		tx := cleanTx()
		tx.GasToken = someContract
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "gas_token")
		require.True(t, ok)
		assert.Equal(t, SeverityMedium, d.Severity)
	})

	t.Run("lone refund receiver is medium", func(t *testing.T) {
		tx := cleanTx()
		tx.RefundReceiver = randomAddress
		res := analyze(t, tx, Options{})

		_, ok := findDetail(res, "refund_receiver")
		require.True(t, ok)
	})

	t.Run("zero addresses count as defaults", func(t *testing.T) {
		tx := cleanTx()
		tx.GasToken = models.ZeroAddress
		tx.RefundReceiver = models.ZeroAddress
		res := analyze(t, tx, Options{})
		assert.Empty(t, res.Details)
	})
}

func TestDelegateCallWhitelist(t *testing.T) {
	t.Run("canonical helper is informational only", func(t *testing.T) {
		tx := cleanTx()
		tx.Operation = models.OperationDelegateCall
		tx.To = multiSend130
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "delegate_call")
		require.True(t, ok)
		assert.Equal(t, SeverityLow, d.Severity)
		assert.Empty(t, d.Priority)
		assert.False(t, res.HasP0())
	})

	t.Run("unknown target is critical P0", func(t *testing.T) {
		tx := cleanTx()
		tx.Operation = models.OperationDelegateCall
		tx.To = randomAddress
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "delegate_call")
		require.True(t, ok)
		assert.Equal(t, SeverityCritical, d.Severity)
		assert.Equal(t, PriorityP0, d.Priority)
		assert.Equal(t, SeverityCritical, res.RiskLevel)
		assert.True(t, res.IsSuspicious)
		assert.Contains(t, res.Warnings, "Untrusted Delegate Call")
		assert.Equal(t, "delegate-call", res.CallType)
	})

	t.Run("whitelist match is case-insensitive", func(t *testing.T) {
		name, ok := TrustedDelegateTarget("0xa238cbeb142c10ef7ad8442c6d1f9e89e07e7761")
		require.True(t, ok)
		assert.Contains(t, name, "MultiSend")
	})
}

func TestValueTransferThresholds(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantDetail bool
		severity   Severity
	}{
		{"exactly 10 units is clean", "10000000000000000000", false, ""},
		{"above 10 units is medium", "10000000000000000001", true, SeverityMedium},
		{"exactly 100 units is medium", "100000000000000000000", true, SeverityMedium},
		{"above 100 units is high", "100000000000000000001", true, SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := cleanTx()
			tx.Value = tt.value
			res := analyze(t, tx, Options{})

			d, ok := findDetail(res, "large_value")
			assert.Equal(t, tt.wantDetail, ok)
			if tt.wantDetail {
				assert.Equal(t, tt.severity, d.Severity)
			}
		})
	}
}

func TestManagementOperations(t *testing.T) {
	managementCases := []string{
		"addOwnerWithThreshold", "removeOwner", "swapOwner", "changeThreshold",
		"enableModule", "disableModule", "setGuard", "setFallbackHandler",
		"changeMasterCopy", "setup",
	}

	for _, method := range managementCases {
		t.Run(method, func(t *testing.T) {
			tx := cleanTx()
			data := "0x694e80c3"
			tx.Data = &data
			tx.To = analyzerSafe
			tx.DataDecoded = &models.DataDecoded{Method: method}
			res := analyze(t, tx, Options{})

			d, ok := findDetail(res, "management_operation")
			require.True(t, ok)
			assert.Equal(t, PriorityP0, d.Priority)
			assert.Equal(t, SeverityCritical, res.RiskLevel)
			assert.True(t, res.IsSuspicious)
			assert.True(t, res.IsManagement)
			assert.Equal(t, "management", res.CallType)
		})
	}

	t.Run("changeThreshold raises the Threshold Changed warning", func(t *testing.T) {
		tx := cleanTx()
		data := "0x694e80c3"
		tx.Data = &data
		tx.DataDecoded = &models.DataDecoded{
			Method: "changeThreshold",
			Parameters: []models.DecodedParameter{
				{Name: "_threshold", Type: "uint256", Value: json.RawMessage(`"1"`)},
			},
		}
		res := analyze(t, tx, Options{})
		assert.Contains(t, res.Warnings, "Threshold Changed")
	})

	t.Run("bookkeeping methods are low and track-only", func(t *testing.T) {
		for _, method := range []string{"signMessage", "approveHash", "execTransaction"} {
			tx := cleanTx()
			tx.DataDecoded = &models.DataDecoded{Method: method}
			res := analyze(t, tx, Options{})

			d, ok := findDetail(res, "bookkeeping")
			require.True(t, ok, "method %s", method)
			assert.Equal(t, SeverityLow, d.Severity)
			assert.True(t, d.TrackOnlyAll)
			assert.True(t, res.TrackOnly())
			assert.False(t, res.IsManagement)
		}
	})

	t.Run("execution failure is medium", func(t *testing.T) {
		tx := cleanTx()
		tx.IsExecuted = true
		failed := false
		tx.IsSuccessful = &failed
		res := analyze(t, tx, Options{})

		d, ok := findDetail(res, "execution_failed")
		require.True(t, ok)
		assert.Equal(t, SeverityMedium, d.Severity)
	})
}

func TestUnusualGasSettings(t *testing.T) {
	tx := cleanTx()
	tx.BaseGas = json.Number("1000001")
	res := analyze(t, tx, Options{})
	_, ok := findDetail(res, "unusual_gas")
	assert.True(t, ok)

	tx = cleanTx()
	tx.GasToken = someContract // gas price stays zero
	res = analyze(t, tx, Options{})
	_, ok = findDetail(res, "gas_manipulation")
	assert.True(t, ok)
}

func TestUntrustedContractInteraction(t *testing.T) {
	tx := cleanTx()
	data := "0xdeadbeef"
	tx.Data = &data
	tx.Trusted = false
	res := analyze(t, tx, Options{})

	d, ok := findDetail(res, "untrusted_contract")
	require.True(t, ok)
	assert.Equal(t, SeverityMedium, d.Severity)
	assert.Equal(t, "contract-call", res.CallType)
}

func TestHashVerificationSignal(t *testing.T) {
	t.Run("matching hash yields verified sub-result and no finding", func(t *testing.T) {
		tx := cleanTx()
		computed := safehash.Calculate(safehash.TxFields{
			To:    tx.To,
			Value: tx.Value,
			Nonce: 3,
		}, "1.3.0", 1, analyzerSafe)
		tx.SafeTxHash = computed.TxHash

		res := analyze(t, tx, Options{ChainID: 1, Version: "1.3.0"})
		require.NotNil(t, res.HashCheck)
		assert.True(t, res.HashCheck.Verified)
		_, found := findDetail(res, "hash_verification")
		assert.False(t, found)
	})

	t.Run("mismatch is critical P0 with both hashes", func(t *testing.T) {
		tx := cleanTx()
		tx.SafeTxHash = "0x1111111111111111111111111111111111111111111111111111111111111111"
		res := analyze(t, tx, Options{ChainID: 1, Version: "1.3.0"})

		d, ok := findDetail(res, "hash_verification")
		require.True(t, ok)
		assert.Equal(t, PriorityP0, d.Priority)
		assert.Equal(t, "transaction hash verification failed", d.Message)
		assert.NotEmpty(t, d.Computed)
		assert.Equal(t, tx.SafeTxHash, d.Reported)
		assert.Equal(t, SeverityCritical, res.RiskLevel)
		assert.True(t, res.IsSuspicious)
	})

	t.Run("unknown wallet version skips the check", func(t *testing.T) {
		tx := cleanTx()
		res := analyze(t, tx, Options{ChainID: 1})
		assert.Nil(t, res.HashCheck)
	})
}

func TestNonceSignal(t *testing.T) {
	prev := int64(3)
	tx := cleanTx()
	tx.Nonce = json.Number("3")
	res := analyze(t, tx, Options{PrevNonce: &prev})

	d, ok := findDetail(res, "nonce_anomaly")
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, d.Severity)
	assert.Equal(t, int64(0), d.Gap)
}

func TestAggregation(t *testing.T) {
	t.Run("P0 forces critical regardless of other findings", func(t *testing.T) {
		// Nothing else risky at all, just the delegate call.
		tx := cleanTx()
		tx.Operation = models.OperationDelegateCall
		tx.To = randomAddress
		res := analyze(t, tx, Options{})
		assert.Equal(t, SeverityCritical, res.RiskLevel)
		assert.True(t, res.IsSuspicious)
	})

	t.Run("one medium is medium but not suspicious", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{{Severity: SeverityMedium}})
		assert.Equal(t, SeverityMedium, level)
		assert.False(t, suspicious)
	})

	t.Run("two mediums become suspicious", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{
			{Severity: SeverityMedium}, {Severity: SeverityMedium},
		})
		assert.Equal(t, SeverityMedium, level)
		assert.True(t, suspicious)
	})

	t.Run("one medium with three lows becomes suspicious", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{
			{Severity: SeverityMedium},
			{Severity: SeverityLow}, {Severity: SeverityLow}, {Severity: SeverityLow},
		})
		assert.Equal(t, SeverityMedium, level)
		assert.True(t, suspicious)
	})

	t.Run("one medium with two lows stays non-suspicious", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{
			{Severity: SeverityMedium},
			{Severity: SeverityLow}, {Severity: SeverityLow},
		})
		assert.Equal(t, SeverityMedium, level)
		assert.False(t, suspicious)
	})

	t.Run("any high dominates mediums", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{
			{Severity: SeverityHigh}, {Severity: SeverityMedium},
		})
		assert.Equal(t, SeverityHigh, level)
		assert.True(t, suspicious)
	})

	t.Run("non-P0 critical still forces critical", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{{Severity: SeverityCritical}})
		assert.Equal(t, SeverityCritical, level)
		assert.True(t, suspicious)
	})

	t.Run("lows alone stay low", func(t *testing.T) {
		level, suspicious := aggregate([]Detail{
			{Severity: SeverityLow}, {Severity: SeverityLow}, {Severity: SeverityLow}, {Severity: SeverityLow},
		})
		assert.Equal(t, SeverityLow, level)
		assert.False(t, suspicious)
	})
}
