package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestKindPlural(t *testing.T) {
	cases := map[Kind]string{
		KindDeposit:   "deposits",
		KindWithdraw:  "withdraws",
		KindRebalance: "rebalances",
		KindFee:       "fees",
		KindSetFee:    "setFees",
		KindZeroBurn:  "zeroBurns",
		Kind("swap"):  "swaps",
	}
	for kind, want := range cases {
		if got := kind.Plural(); got != want {
			t.Fatalf("%s: expected %s, got %s", kind, want, got)
		}
	}
}

func TestTopic0(t *testing.T) {
	record := LogRecord{Topics: []string{"0xABCDEF", "0x01"}}
	if got := record.Topic0(); got != "0xabcdef" {
		t.Fatalf("expected lower-cased topic0, got %s", got)
	}
	if got := (LogRecord{}).Topic0(); got != "" {
		t.Fatalf("expected empty topic0 for anonymous log, got %s", got)
	}
}

func TestFeeDataMirroredTicksAreNull(t *testing.T) {
	data, err := json.Marshal(FeeData{QttyToken0: "1", QttyToken1: "2"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"lowerTick":null`) {
		t.Fatalf("expected null lowerTick, got %s", data)
	}
}

func TestOperationContractAddressKey(t *testing.T) {
	data, err := json.Marshal(Operation{Address: "0xabc", Kind: KindDeposit})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"contractAddress":"0xabc"`) {
		t.Fatalf("expected contractAddress key, got %s", data)
	}
}
