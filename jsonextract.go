package mcqbank

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model response carries no JSON payload
var ErrNoJSON = errors.New("no JSON payload in response")

// ExtractJSONPayload trims model prose around a JSON document. It starts at
// the first '[' (or '{' when there is none) and ends at the last ']' (or
// '}' when there is none).
func ExtractJSONPayload(content string) (string, error) {
	start := strings.Index(content, "[")
	if start == -1 {
		start = strings.Index(content, "{")
	}
	if start == -1 {
		return "", ErrNoJSON
	}

	end := strings.LastIndex(content, "]")
	if end == -1 {
		end = strings.LastIndex(content, "}")
	}
	if end == -1 || end < start {
		return "", ErrNoJSON
	}

	return strings.TrimSpace(content[start : end+1]), nil
}

// ParseCandidates decodes a segmenter response into candidates. A single
// object is accepted in place of a list.
func ParseCandidates(response string) ([]CandidateMCQ, error) {
	payload, err := ExtractJSONPayload(response)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(payload, "{") {
		var one CandidateMCQ
		if err := json.Unmarshal([]byte(payload), &one); err != nil {
			return nil, fmt.Errorf("failed to parse candidate object: %w", err)
		}
		return []CandidateMCQ{one}, nil
	}

	var many []CandidateMCQ
	if err := json.Unmarshal([]byte(payload), &many); err != nil {
		return nil, fmt.Errorf("failed to parse candidate list: %w", err)
	}
	return many, nil
}
