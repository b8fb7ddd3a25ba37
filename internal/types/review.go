package types

import (
	"fmt"
	"time"
)

// Verdict is the classifier's overall judgment of a change. Later values are more severe.
type Verdict string

const (
	VerdictCosmetic  Verdict = "cosmetic"
	VerdictSignature Verdict = "signature"
	VerdictLogic     Verdict = "logic"
)

func (v Verdict) Severity() int {
	switch v {
	case VerdictLogic:
		return 2
	case VerdictSignature:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe verdict.
func (v Verdict) Max(o Verdict) Verdict {
	if o.Severity() > v.Severity() {
		return o
	}
	if v == "" {
		return VerdictCosmetic
	}
	return v
}

// ItemType tags one compatibility item in the result.
type ItemType string

const (
	ItemOverride       ItemType = "override"
	ItemInterfaceImpl  ItemType = "interface_impl"
	ItemParentCall     ItemType = "parent_call"
	ItemStaticCall     ItemType = "static_call"
	ItemInstanceCall   ItemType = "instance_call"
	ItemInstantiation  ItemType = "instantiation"
	ItemTraitUse       ItemType = "trait_use"
	ItemRemovedMember  ItemType = "removed_member"
	ItemClassFinal     ItemType = "class_final"
	ItemFinalOverride  ItemType = "final_override"
	ItemDeletedClass   ItemType = "deleted_class"
	ItemCtorOverride   ItemType = "constructor_override"
	ItemCtorParentCall ItemType = "constructor_parent_call"
)

// Item is the verdict for one detected usage in one dependent.
type Item struct {
	Type      ItemType     `json:"type"`
	Dependent string       `json:"dependent"`
	Relation  RelationKind `json:"relation,omitempty"`
	Member    string       `json:"member,omitempty"`
	Resolved  bool         `json:"resolved"`
	Note      string       `json:"note"`
	ParamDiff []string     `json:"param_diff,omitempty"`
}

func (i Item) String() string {
	mark := "✕"
	if i.Resolved {
		mark = "✓"
	}
	if i.Member != "" {
		return fmt.Sprintf("%s [%s] %s::%s - %s", mark, i.Type, i.Dependent, i.Member, i.Note)
	}
	return fmt.Sprintf("%s [%s] %s - %s", mark, i.Type, i.Dependent, i.Note)
}

// Hunk is one region of a retrieved patch.
type Hunk struct {
	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`
	Added    int `json:"added"`
	Removed  int `json:"removed"`
}

// Patch is the textual change of a vendor file between the two versions.
type Patch struct {
	Text  string `json:"text"`
	Hunks []Hunk `json:"hunks,omitempty"`
}

// ClassChange is the per-changed-class section of a result.
type ClassChange struct {
	FQCN      string   `json:"fqcn"`
	Path      string   `json:"path"`
	Verdict   Verdict  `json:"verdict"`
	Details   []string `json:"details"`
	BCDetails []string `json:"bc_details"`
	Items     []Item   `json:"items"`
	Patch     *Patch   `json:"patch,omitempty"`
}

// DeletedClass lists the dependents that still reference a removed vendor class.
type DeletedClass struct {
	FQCN  string `json:"fqcn"`
	Path  string `json:"path"`
	Items []Item `json:"items"`
}

// Totals aggregates item counts across the run.
type Totals struct {
	Items      int `json:"items"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// Result is the structured output of one analysis run.
type Result struct {
	RunID          string         `json:"run_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Before         string         `json:"before"`
	After          string         `json:"after"`
	Consumers      []string       `json:"consumers"`
	ChangedClasses []ClassChange  `json:"changed_classes"`
	DeletedClasses []DeletedClass `json:"deleted_classes"`
	Totals         Totals         `json:"totals"`
	Diagnostics    []Diagnostic   `json:"diagnostics,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	FromCache      bool           `json:"-"`
}

// Tally recomputes Totals from the item lists.
func (r *Result) Tally() {
	var t Totals
	count := func(items []Item) {
		for _, it := range items {
			t.Items++
			if it.Resolved {
				t.Resolved++
			} else {
				t.Unresolved++
			}
		}
	}
	for _, c := range r.ChangedClasses {
		count(c.Items)
	}
	for _, d := range r.DeletedClasses {
		count(d.Items)
	}
	r.Totals = t
}
