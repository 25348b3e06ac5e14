package semantics

import (
	"encoding/json"
	"fmt"

	"github.com/coolbeans/amendlex/internal/types"
)

// This file gives the semantic tree a canonical, implementation-stable
// JSON shape: a "type" field discriminating the four Node variants, and
// string spellings (rather than raw integers) for the Kind enums, so
// serialized trees stay comparable across versions.

var editKindNames = [...]string{
	EditStrike:       "strike",
	EditInsert:       "insert",
	EditStrikeInsert: "strike_insert",
	EditRewrite:      "rewrite",
	EditRedesignate:  "redesignate",
	EditMove:         "move",
}

func (k EditKind) String() string {
	if int(k) < 0 || int(k) >= len(editKindNames) {
		return "unknown"
	}
	return editKindNames[k]
}

func (k EditKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *EditKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range editKindNames {
		if n == name {
			*k = EditKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown edit kind %q", name)
}

var editTargetKindNames = [...]string{
	TargetText:        "text",
	TargetRef:         "ref",
	TargetRefs:        "refs",
	TargetPunctuation: "punctuation",
}

func (k EditTargetKind) String() string {
	if int(k) < 0 || int(k) >= len(editTargetKindNames) {
		return "unknown"
	}
	return editTargetKindNames[k]
}

func (k EditTargetKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *EditTargetKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range editTargetKindNames {
		if n == name {
			*k = EditTargetKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown edit target kind %q", name)
}

var restrictionKindNames = [...]string{
	RestrictionHeading:           "heading",
	RestrictionSubsectionHeading: "subsection_heading",
	RestrictionSubLocationHeading: "sub_location_heading",
	RestrictionSentenceOrdinal:   "sentence_ordinal",
	RestrictionSentenceLast:      "sentence_last",
	RestrictionMatterPreceding:   "matter_preceding",
	RestrictionMatterFollowing:   "matter_following",
	RestrictionIn:                "in",
	RestrictionAtEnd:             "at_end",
	RestrictionBefore:            "before",
	RestrictionAfter:             "after",
}

func (k RestrictionKind) String() string {
	if int(k) < 0 || int(k) >= len(restrictionKindNames) {
		return "unknown"
	}
	return restrictionKindNames[k]
}

func (k RestrictionKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *RestrictionKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range restrictionKindNames {
		if n == name {
			*k = RestrictionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown restriction kind %q", name)
}

// nodeType is the value of the "type" discriminator field.
type nodeType string

const (
	nodeTypeInstructionRoot     nodeType = "InstructionRoot"
	nodeTypeScope               nodeType = "Scope"
	nodeTypeLocationRestriction nodeType = "LocationRestriction"
	nodeTypeEdit                nodeType = "Edit"
)

func marshalNodes(nodes []Node) ([]json.RawMessage, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]json.RawMessage, len(nodes))
	for i, n := range nodes {
		b, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func unmarshalNodes(raws []json.RawMessage) ([]Node, error) {
	if raws == nil {
		return nil, nil
	}
	out := make([]Node, len(raws))
	for i, raw := range raws {
		n, err := unmarshalNode(raw)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func unmarshalNode(raw json.RawMessage) (Node, error) {
	var peek struct {
		Type nodeType `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, err
	}
	switch peek.Type {
	case nodeTypeInstructionRoot:
		var n InstructionRoot
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case nodeTypeScope:
		var n ScopeNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case nodeTypeLocationRestriction:
		var n LocationRestrictionNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case nodeTypeEdit:
		var n EditNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unknown semantic node type %q", peek.Type)
	}
}

func (r *InstructionRoot) MarshalJSON() ([]byte, error) {
	children, err := marshalNodes(r.Children)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type            nodeType          `json:"type"`
		TargetSection   *string           `json:"targetSection,omitempty"`
		TargetScopePath types.Path        `json:"targetScopePath,omitempty"`
		Children        []json.RawMessage `json:"children"`
	}{nodeTypeInstructionRoot, r.TargetSection, r.TargetScopePath, children})
}

func (r *InstructionRoot) UnmarshalJSON(data []byte) error {
	var aux struct {
		TargetSection   *string           `json:"targetSection"`
		TargetScopePath types.Path        `json:"targetScopePath"`
		Children        []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.TargetSection = aux.TargetSection
	r.TargetScopePath = aux.TargetScopePath
	children, err := unmarshalNodes(aux.Children)
	if err != nil {
		return err
	}
	r.Children = children
	return nil
}

func (n *ScopeNode) MarshalJSON() ([]byte, error) {
	children, err := marshalNodes(n.Children)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type     nodeType            `json:"type"`
		Scope    types.PathSegment   `json:"scope"`
		Children []json.RawMessage   `json:"children"`
	}{nodeTypeScope, n.Scope, children})
}

func (n *ScopeNode) UnmarshalJSON(data []byte) error {
	var aux struct {
		Scope    types.PathSegment `json:"scope"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.Scope = aux.Scope
	children, err := unmarshalNodes(aux.Children)
	if err != nil {
		return err
	}
	n.Children = children
	return nil
}

func (n *LocationRestrictionNode) MarshalJSON() ([]byte, error) {
	children, err := marshalNodes(n.Children)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type        nodeType            `json:"type"`
		Restriction LocationRestriction `json:"restriction"`
		Children    []json.RawMessage   `json:"children"`
	}{nodeTypeLocationRestriction, n.Restriction, children})
}

func (n *LocationRestrictionNode) UnmarshalJSON(data []byte) error {
	var aux struct {
		Restriction LocationRestriction `json:"restriction"`
		Children    []json.RawMessage   `json:"children"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.Restriction = aux.Restriction
	children, err := unmarshalNodes(aux.Children)
	if err != nil {
		return err
	}
	n.Children = children
	return nil
}

func (n *EditNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type nodeType     `json:"type"`
		Edit UltimateEdit `json:"edit"`
	}{nodeTypeEdit, n.Edit})
}

func (n *EditNode) UnmarshalJSON(data []byte) error {
	var aux struct {
		Edit UltimateEdit `json:"edit"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.Edit = aux.Edit
	return nil
}

// MarshalJSON renders the tree rooted at t.Root, or JSON null for an empty
// tree.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t.Root == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.Root)
}

// UnmarshalJSON reconstructs a tree from its canonical JSON shape.
func (t *Tree) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Root = nil
		return nil
	}
	var root InstructionRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	t.Root = &root
	return nil
}
