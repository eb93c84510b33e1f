package decision

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"agentarena/src/model"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// ParseResponse extracts a ParsedDecision from a raw LLM reply using the
// same three-strategy fallback as llm_invoker.py's _parse_llm_response:
// first any fenced ```json code block, then the widest {...} substring,
// then the raw body as-is. The first strategy that yields valid JSON with
// the expected shape wins; if none do, parsing fails with a single error
// that previews the response for debugging.
func ParseResponse(raw string) (*model.ParsedDecision, error) {
	text := strings.TrimSpace(raw)

	for _, block := range fencedJSONPattern.FindAllStringSubmatch(text, -1) {
		if decision, err := decodeDecision(strings.TrimSpace(block[1])); err == nil {
			return decision, nil
		}
	}

	if first := strings.Index(text, "{"); first != -1 {
		if last := strings.LastIndex(text, "}"); last > first {
			if decision, err := decodeDecision(text[first : last+1]); err == nil {
				return decision, nil
			}
		}
	}

	if decision, err := decodeDecision(text); err == nil {
		return decision, nil
	}

	preview := text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return nil, fmt.Errorf("decision: could not extract valid JSON from response; preview: %s...", preview)
}

func decodeDecision(candidate string) (*model.ParsedDecision, error) {
	var decision model.ParsedDecision
	if err := json.Unmarshal([]byte(candidate), &decision); err != nil {
		return nil, err
	}
	if err := validateShape(decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// validateShape rejects decisions missing or mistyping required fields, per
// spec §4.5 step 4: any field missing or of wrong type fails parsing with
// invalid_response.
func validateShape(decision model.ParsedDecision) error {
	switch decision.Decision {
	case "trade", "hold":
	default:
		return fmt.Errorf("decision: invalid decision value %q", decision.Decision)
	}

	for i, order := range decision.Orders {
		switch order.Action {
		case model.OrderActionOpen:
			if order.Symbol == "" || order.Side == nil || order.Quantity == nil || order.Leverage == nil {
				return fmt.Errorf("decision: order %d missing required open fields", i)
			}
			if *order.Side != model.OrderSideBuy && *order.Side != model.OrderSideSell {
				return fmt.Errorf("decision: order %d has invalid side %q", i, *order.Side)
			}
		case model.OrderActionClose:
			if order.Symbol == "" {
				return fmt.Errorf("decision: order %d missing symbol", i)
			}
		default:
			return fmt.Errorf("decision: order %d has invalid action %q", i, order.Action)
		}
	}
	return nil
}
