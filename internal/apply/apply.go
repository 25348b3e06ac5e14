// Package apply is the pipeline's back end: it flattens a semantic
// tree into operations, drives internal/resolve -> internal/plan,
// applies the accepted patches, and wraps the result in an
// AmendmentEffect. Every operation is attempted, every failure is
// classified, and the summary is rolled up from those attempts.
package apply

import (
	"sort"
	"strings"

	"github.com/coolbeans/amendlex/internal/docmodel"
	"github.com/coolbeans/amendlex/internal/plan"
	"github.com/coolbeans/amendlex/internal/resolve"
	"github.com/coolbeans/amendlex/internal/semantics"
)

// MarkdownReplacementRange is a replacement record in post-apply
// coordinates, ready for a renderer to annotate.
type MarkdownReplacementRange struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	DeletedText string `json:"deletedText"`
}

// ApplyPatches applies patches to sourceText in descending-by-start order
// (so earlier indices never shift out from under a later apply), then
// computes each patch's replacement range in post-apply coordinates by
// summing the net length delta of every patch that starts earlier in the
// source text.
func ApplyPatches(sourceText string, patches []plan.Patch) (string, []MarkdownReplacementRange) {
	if len(patches) == 0 {
		return sourceText, nil
	}

	// Descending by start so earlier indices never shift; two zero-width
	// patches at the same position apply later-operation-first, leaving
	// the earlier operation's content first in the text.
	byStart := append([]plan.Patch(nil), patches...)
	sort.Slice(byStart, func(i, j int) bool {
		if byStart[i].Start != byStart[j].Start {
			return byStart[i].Start > byStart[j].Start
		}
		return byStart[i].OperationIndex > byStart[j].OperationIndex
	})

	result := sourceText
	for _, p := range byStart {
		result = result[:p.Start] + p.Inserted + result[p.End:]
	}

	byOpIndex := append([]plan.Patch(nil), patches...)
	sort.SliceStable(byOpIndex, func(i, j int) bool { return byOpIndex[i].OperationIndex < byOpIndex[j].OperationIndex })

	replacements := make([]MarkdownReplacementRange, 0, len(patches))
	for _, p := range byOpIndex {
		delta := 0
		for _, q := range patches {
			if q.Start < p.Start ||
				(q.Start == p.Start && q.End == q.Start && q.OperationIndex < p.OperationIndex) {
				delta += len(q.Inserted) - len(q.Deleted)
			}
		}
		start := p.Start + delta
		replacements = append(replacements, MarkdownReplacementRange{
			Start:       start,
			End:         start + len(p.Inserted),
			DeletedText: p.Deleted,
		})
	}
	return result, replacements
}

// Status is the top-level outcome of an Amend call.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnsupported Status = "unsupported"
)

// FailureKind is the per-operation failure taxonomy.
type FailureKind string

const (
	FailureTargetUnresolved FailureKind = "target_unresolved"
	FailureTargetAmbiguous  FailureKind = "target_ambiguous"
	FailureScopeUnresolved  FailureKind = "scope_unresolved"
	FailureNoMatch          FailureKind = "no_match"
)

// FailedItem records why one operation's edit did not apply.
type FailedItem struct {
	OperationIndex int         `json:"operationIndex"`
	Kind           FailureKind `json:"kind"`
	Reason         string      `json:"reason"`
}

// ApplySummary rolls up operation-level outcomes.
type ApplySummary struct {
	PartiallyApplied bool         `json:"partiallyApplied"`
	FailedItems      []FailedItem `json:"failedItems,omitempty"`
}

// Debug carries the per-operation attempt trail plus, on failure, the
// first reason string surfaced as the overall failure.
type Debug struct {
	OperationAttempts []plan.Attempt `json:"operationAttempts,omitempty"`
	FailureReason     string         `json:"failureReason,omitempty"`
}

// Segment is one rendered chunk of the post-amendment section body.
// Only "unchanged" is ever produced here; richer segment kinds
// (inserted/deleted spans) are the external renderer's concern.
type Segment struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Change is one accepted patch, annotated with the edit kind that
// produced it.
type Change struct {
	OperationIndex int    `json:"operationIndex"`
	EditKind       string `json:"editKind"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Deleted        string `json:"deleted"`
	Inserted       string `json:"inserted"`
}

// AmendmentEffect is the library's public result type.
type AmendmentEffect struct {
	Status       Status                     `json:"status"`
	SectionPath  string                     `json:"sectionPath,omitempty"`
	Segments     []Segment                  `json:"segments"`
	Changes      []Change                   `json:"changes,omitempty"`
	Deleted      []string                   `json:"deleted,omitempty"`
	Inserted     []string                   `json:"inserted,omitempty"`
	Replacements []MarkdownReplacementRange `json:"replacements,omitempty"`
	ApplySummary ApplySummary               `json:"applySummary"`
	Debug        Debug                      `json:"debug"`
}

// Amend drives the full resolve -> plan -> apply pipeline over a
// semantic tree against a section body. translateIssues carries the
// translator's issue strings (used only to enrich the failure reason
// when zero operations were produced); it may be nil.
func Amend(tree *semantics.Tree, translateIssues []string, instructionText, sectionMarkdown string) AmendmentEffect {
	nodes := Flatten(tree, instructionText)
	if len(nodes) == 0 {
		reason := "no_operations_produced"
		if len(translateIssues) > 0 {
			reason = translateIssues[0]
		}
		return unsupported(sectionMarkdown, reason)
	}

	ops := make([]resolve.Operation, len(nodes))
	for i, n := range nodes {
		ops[i] = n.Operation
	}

	sectionPath := ""
	if tree.Root != nil && tree.Root.TargetSection != nil {
		sectionPath = *tree.Root.TargetSection
	}

	model, err := docmodel.Build(sectionMarkdown)
	if err != nil {
		eff := unsupported(sectionMarkdown, "document_model_error")
		eff.SectionPath = sectionPath
		return eff
	}

	results := resolve.Resolve(model, ops)
	patches, attempts := plan.Plan(model, results)

	failed, partial := classify(results, attempts)

	if len(patches) == 0 {
		reason := "no_patches_applied"
		if len(failed) > 0 {
			reason = string(failed[0].Kind)
		}
		eff := unsupported(sectionMarkdown, reason)
		eff.SectionPath = sectionPath
		eff.ApplySummary = ApplySummary{PartiallyApplied: false, FailedItems: failed}
		eff.Debug.OperationAttempts = attempts
		return eff
	}

	postText, replacements := ApplyPatches(model.PlainText, patches)

	changes := make([]Change, len(patches))
	deleted := make([]string, len(patches))
	inserted := make([]string, len(patches))
	for i, p := range patches {
		changes[i] = Change{
			OperationIndex: p.OperationIndex,
			EditKind:       attemptKind(attempts, p.OperationIndex),
			Start:          p.Start,
			End:            p.End,
			Deleted:        p.Deleted,
			Inserted:       p.Inserted,
		}
		deleted[i] = p.Deleted
		inserted[i] = p.Inserted
	}

	return AmendmentEffect{
		Status:      StatusOK,
		SectionPath: sectionPath,
		Segments:    []Segment{{Kind: "unchanged", Text: postText}},
		Changes:     changes,
		Deleted:     deleted,
		Inserted:    inserted,
		Replacements: replacements,
		ApplySummary: ApplySummary{PartiallyApplied: partial, FailedItems: failed},
		Debug:        Debug{OperationAttempts: attempts},
	}
}

func unsupported(sectionMarkdown, reason string) AmendmentEffect {
	return AmendmentEffect{
		Status:   StatusUnsupported,
		Segments: []Segment{{Kind: "unchanged", Text: sectionMarkdown}},
		Debug:    Debug{FailureReason: reason},
	}
}

// classify turns each non-applied attempt into a typed FailedItem by
// cross-referencing the resolver's issues for that operation.
func classify(results []resolve.Result, attempts []plan.Attempt) ([]FailedItem, bool) {
	var failed []FailedItem
	applied := 0

	for i, att := range attempts {
		if att.Outcome == plan.OutcomeApplied {
			applied++
			continue
		}

		kind := FailureNoMatch
		reason := "search text or anchor not found in scoped range"
		switch att.Outcome {
		case plan.OutcomeScopeUnresolved:
			kind = FailureScopeUnresolved
			reason = "scope could not be derived"
			for _, iss := range results[i].Issues {
				if iss.Role != resolve.RoleTarget {
					continue
				}
				if iss.Kind == string(resolve.RoleTarget)+"_ambiguous" {
					kind = FailureTargetAmbiguous
					reason = "explicit target path matched multiple nodes"
				} else {
					kind = FailureTargetUnresolved
					reason = "explicit target path matched no node"
				}
			}
		case plan.OutcomeNoPatch:
			// A no-patch caused by an unresolvable structural role (a
			// rewrite target, atEndOf node, move anchor) is a path
			// failure, not a missing needle.
			for _, iss := range results[i].Issues {
				if strings.HasSuffix(iss.Kind, "_ambiguous") {
					kind = FailureTargetAmbiguous
					reason = "path matched multiple nodes (" + iss.Kind + ")"
					break
				}
				if strings.HasSuffix(iss.Kind, "_unresolved") {
					kind = FailureTargetUnresolved
					reason = "path matched no node (" + iss.Kind + ")"
				}
			}
		}
		failed = append(failed, FailedItem{OperationIndex: att.OperationIndex, Kind: kind, Reason: reason})
	}

	return failed, applied > 0 && applied < len(attempts)
}

func attemptKind(attempts []plan.Attempt, opIndex int) string {
	for _, a := range attempts {
		if a.OperationIndex == opIndex {
			return a.Kind
		}
	}
	return ""
}
