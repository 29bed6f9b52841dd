package analysis

import "testing"

func TestCheckNonce(t *testing.T) {
	tests := []struct {
		name         string
		current      int64
		previous     int64
		hasPrevious  bool
		wantChecked  bool
		wantRisky    bool
		wantSeverity Severity
		wantGap      int64
	}{
		{
			name:        "no previous nonce performs no check",
			current:     5,
			hasPrevious: false,
			wantChecked: false,
		},
		{
			name:        "sequential nonce is clean",
			current:     6,
			previous:    5,
			hasPrevious: true,
			wantChecked: true,
			wantRisky:   false,
			wantGap:     1,
		},
		{
			name:        "gap equal to threshold is clean",
			current:     5,
			previous:    0,
			hasPrevious: true,
			wantChecked: true,
			wantRisky:   false,
			wantGap:     5,
		},
		{
			name:         "gap just above threshold is medium",
			current:      8,
			previous:     2,
			hasPrevious:  true,
			wantChecked:  true,
			wantRisky:    true,
			wantSeverity: SeverityMedium,
			wantGap:      6,
		},
		{
			name:         "gap at twice the threshold stays medium",
			current:      10,
			previous:     0,
			hasPrevious:  true,
			wantChecked:  true,
			wantRisky:    true,
			wantSeverity: SeverityMedium,
			wantGap:      10,
		},
		{
			name:         "gap beyond twice the threshold is high",
			current:      11,
			previous:     0,
			hasPrevious:  true,
			wantChecked:  true,
			wantRisky:    true,
			wantSeverity: SeverityHigh,
			wantGap:      11,
		},
		{
			name:         "same nonce reused is high",
			current:      5,
			previous:     5,
			hasPrevious:  true,
			wantChecked:  true,
			wantRisky:    true,
			wantSeverity: SeverityHigh,
			wantGap:      0,
		},
		{
			name:         "nonce decreased is critical",
			current:      0,
			previous:     5,
			hasPrevious:  true,
			wantChecked:  true,
			wantRisky:    true,
			wantSeverity: SeverityCritical,
			wantGap:      -5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckNonce(tt.current, tt.previous, tt.hasPrevious, DefaultNonceGapThreshold)
			if got.Checked != tt.wantChecked {
				t.Fatalf("Checked = %v, want %v", got.Checked, tt.wantChecked)
			}
			if got.Risky != tt.wantRisky {
				t.Fatalf("Risky = %v, want %v", got.Risky, tt.wantRisky)
			}
			if tt.wantRisky && got.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", got.Severity, tt.wantSeverity)
			}
			if tt.wantChecked && got.Gap != tt.wantGap {
				t.Errorf("Gap = %d, want %d", got.Gap, tt.wantGap)
			}
		})
	}
}

func TestCheckNonceZeroThresholdUsesDefault(t *testing.T) {
	got := CheckNonce(11, 0, true, 0)
	if !got.Risky || got.Severity != SeverityHigh {
		t.Errorf("CheckNonce(11, 0) with default threshold = %+v, want risky high", got)
	}
}
