package types

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders a ScopeKind by its rule-name spelling ("subsection",
// "paragraph", ...) rather than its underlying integer rank, per the
// canonical semantic-tree JSON shape.
func (k ScopeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a ScopeKind from its rule-name spelling.
func (k *ScopeKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	kind, ok := ParseScopeKind(name)
	if !ok {
		return fmt.Errorf("unknown scope kind %q", name)
	}
	*k = kind
	return nil
}
