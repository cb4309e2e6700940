package middleware

import (
	"strings"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid lowercase", "0x52908400098527886e0f7030069857d2e4169ee7", "0x52908400098527886e0f7030069857d2e4169ee7", false},
		{"checksummed normalized", "0x52908400098527886E0F7030069857D2E4169EE7", "0x52908400098527886e0f7030069857d2e4169ee7", false},
		{"trims whitespace", " 0x52908400098527886e0f7030069857d2e4169ee7 ", "0x52908400098527886e0f7030069857d2e4169ee7", false},
		{"empty", "", "", true},
		{"missing prefix", "52908400098527886e0f7030069857d2e4169ee7", "", true},
		{"too short", "0x1234", "", true},
		{"non-hex", "0xZZ908400098527886e0f7030069857d2e4169ee7", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateAddress("voter", tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateContentID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "6f1c1c28-0c5b-4f7e-9a55-0c0c5d3a2b11", "6f1c1c28-0c5b-4f7e-9a55-0c0c5d3a2b11", false},
		{"uppercase normalized", "6F1C1C28-0C5B-4F7E-9A55-0C0C5D3A2B11", "6f1c1c28-0c5b-4f7e-9a55-0c0c5d3a2b11", false},
		{"empty", "", "", true},
		{"not a uuid", "content-1", "", true},
		{"sql injection", "'; DROP TABLE contents--", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateContentID(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	if _, msg := ValidateTitle("   "); msg == "" {
		t.Error("blank title should be rejected")
	}
	if _, msg := ValidateTitle(strings.Repeat("a", MaxTitleLen+1)); msg == "" {
		t.Error("overlong title should be rejected")
	}
	got, msg := ValidateTitle("  Deepfake? ")
	if msg != "" || got != "Deepfake?" {
		t.Errorf("got %q / %q", got, msg)
	}
}

func TestValidateDescription(t *testing.T) {
	long := strings.Repeat("x", MaxDescriptionLen+50)
	if got := ValidateDescription(long); len(got) != MaxDescriptionLen {
		t.Errorf("expected truncation to %d, got %d", MaxDescriptionLen, len(got))
	}
	if got := ValidateDescription("  short  "); got != "short" {
		t.Errorf("got %q, want %q", got, "short")
	}
}

func TestValidateContentHash(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", false},
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", false},
		{"ipfs://bafy", true},
		{strings.Repeat("a", MaxContentHashLen+1), true},
	}
	for _, tt := range tests {
		_, msg := ValidateContentHash(tt.input)
		if (msg != "") != tt.wantErr {
			t.Errorf("ValidateContentHash(%q) error=%q, wantErr=%v", tt.input, msg, tt.wantErr)
		}
	}
}

func TestValidateOptionTokenConfidence(t *testing.T) {
	ptr := func(v int) *int { return &v }

	for _, v := range []*int{nil, ptr(-1), ptr(3)} {
		if ValidateOption(v) == "" {
			t.Errorf("option %v should be rejected", v)
		}
	}
	for _, v := range []int{0, 1, 2} {
		if msg := ValidateOption(ptr(v)); msg != "" {
			t.Errorf("option %d rejected: %s", v, msg)
		}
	}

	for _, v := range []*int{nil, ptr(-1), ptr(5)} {
		if ValidateTokenType(v) == "" {
			t.Errorf("token type %v should be rejected", v)
		}
	}
	if msg := ValidateTokenType(ptr(4)); msg != "" {
		t.Errorf("PYUSD rejected: %s", msg)
	}

	for _, c := range []int{0, 11, -3} {
		if ValidateConfidence(c) == "" {
			t.Errorf("confidence %d should be rejected", c)
		}
	}
	for _, c := range []int{1, 5, 10} {
		if msg := ValidateConfidence(c); msg != "" {
			t.Errorf("confidence %d rejected: %s", c, msg)
		}
	}
}

func TestValidateStakeAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"integer", "100", "100", false},
		{"fraction", "0.05", "0.05", false},
		{"trims whitespace", " 2.5 ", "2.5", false},
		{"eighteen decimals", "0.000000000000000001", "0.000000000000000001", false},
		{"too precise", "0.0000000000000000001", "", true},
		{"zero", "0", "", true},
		{"negative", "-1", "", true},
		{"empty", "", "", true},
		{"garbage", "ten", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateStakeAmount(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("got %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestValidateHash32(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)
	if got, msg := ValidateHash32("commitHash", strings.ToUpper(valid[2:])); msg == "" {
		t.Errorf("missing prefix accepted: %q", got)
	}
	if got, msg := ValidateHash32("commitHash", "0x"+strings.Repeat("AB", 32)); msg != "" || got != valid {
		t.Errorf("got %q / %q", got, msg)
	}
	if _, msg := ValidateHash32("commitHash", "0x1234"); msg == "" {
		t.Error("short hash accepted")
	}
	if _, msg := ValidateHash32("commitHash", ""); msg == "" {
		t.Error("empty hash accepted")
	}
}

func TestValidateSalt(t *testing.T) {
	if ValidateSalt("") == "" {
		t.Error("empty salt accepted")
	}
	if ValidateSalt(strings.Repeat("s", MaxSaltLen+1)) == "" {
		t.Error("overlong salt accepted")
	}
	if msg := ValidateSalt("pepper"); msg != "" {
		t.Errorf("unexpected error: %s", msg)
	}
}
