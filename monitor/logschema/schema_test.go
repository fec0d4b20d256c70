package logschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	err := Validate(EventQuoteDecision, map[string]interface{}{
		"symbol":    "ETHUSDC",
		"sequence":  uint64(7),
		"quoted":    true,
		"mid":       "2700.5",
		"riskScore": 12.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate(EventQuoteDecision, map[string]interface{}{
		"symbol": "ETHUSDC",
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	assert.Contains(t, err.Error(), "sequence")
	assert.NoError(t, Validate("not_registered", nil))
}

func TestKnownEvents(t *testing.T) {
	names := Known()
	assert.Contains(t, names, EventRisk)
	assert.Contains(t, names, EventSnapshotDiscarded)
	assert.IsIncreasing(t, names)
}
