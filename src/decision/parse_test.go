package decision

import "testing"

func TestParseResponseFencedCodeBlock(t *testing.T) {
	raw := "Here is my decision:\n```json\n{\"decision\": \"trade\", \"reasoning\": \"momentum\", \"orders\": [{\"action\": \"open\", \"symbol\": \"BTC-USD\", \"side\": \"buy\", \"quantity\": 1, \"leverage\": 2}]}\n```\nThanks."

	decision, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if decision.Decision != "trade" {
		t.Fatalf("decision = %s, want trade", decision.Decision)
	}
	if len(decision.Orders) != 1 || decision.Orders[0].Symbol != "BTC-USD" {
		t.Fatalf("orders = %+v", decision.Orders)
	}
}

func TestParseResponseBraceBoundaryFallback(t *testing.T) {
	raw := "Sure thing! {\"decision\": \"hold\", \"reasoning\": \"waiting\", \"orders\": []} -- let me know if you need more."

	decision, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if decision.Decision != "hold" {
		t.Fatalf("decision = %s, want hold", decision.Decision)
	}
}

func TestParseResponseRawJSON(t *testing.T) {
	raw := `{"decision": "hold", "reasoning": "nothing to do", "orders": []}`

	decision, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if decision.Decision != "hold" {
		t.Fatalf("decision = %s, want hold", decision.Decision)
	}
}

func TestParseResponseInvalidFailsAllStrategies(t *testing.T) {
	_, err := ParseResponse("I don't know what to do today.")
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestParseResponseRejectsMissingOpenFields(t *testing.T) {
	raw := `{"decision": "trade", "reasoning": "x", "orders": [{"action": "open", "symbol": "BTC-USD"}]}`
	_, err := ParseResponse(raw)
	if err == nil {
		t.Fatal("expected error for open order missing side/quantity/leverage")
	}
}

func TestParseResponseRejectsInvalidSideValue(t *testing.T) {
	raw := `{"decision": "trade", "reasoning": "x", "orders": [{"action": "open", "symbol": "BTC-USD", "side": "long", "quantity": 1, "leverage": 2}]}`
	_, err := ParseResponse(raw)
	if err == nil {
		t.Fatal("expected error for open order with a non buy/sell side value")
	}
}

func TestParseResponseAllowsCloseWithOmittedSideAndQuantity(t *testing.T) {
	raw := `{"decision": "trade", "reasoning": "take profit", "orders": [{"action": "close", "symbol": "BTC-USD", "position_id": "2b6b0f0e-4c1a-4e9e-9f1f-6c9f6f6f6f6f"}]}`
	decision, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if decision.Orders[0].PositionID == nil {
		t.Fatal("expected position_id to be parsed")
	}
}
