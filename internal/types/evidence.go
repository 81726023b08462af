package types

import (
	"encoding/json"
	"fmt"
)

// Proof is one piece of evidence attached to an Item. Proofs are values;
// once appended to an Item they are never modified in place.
type Proof struct {
	Index    int        `json:"index"`
	Kind     EntityKind `json:"kind"`
	Text     string     `json:"text"`
	Markup   string     `json:"markup,omitempty"`
	Severity Severity   `json:"severity"`
}

// NewProof validates kind and severity before building the proof.
func NewProof(index int, kind EntityKind, text string, sev Severity) (Proof, error) {
	if !kind.Valid() {
		return Proof{}, fmt.Errorf("%w: proof kind %d", ErrInvalidArgument, int(kind))
	}
	if !sev.Valid() {
		return Proof{}, fmt.Errorf("%w: proof severity %d", ErrInvalidArgument, int(sev))
	}
	return Proof{Index: index, Kind: kind, Text: text, Severity: sev}, nil
}

// WithMarkup returns a copy of p carrying a structured rendering.
func (p Proof) WithMarkup(markup string) Proof {
	p.Markup = markup
	return p
}

// Duplicate returns an independent copy of p.
func (p Proof) Duplicate() Proof {
	return Proof{
		Index:    p.Index,
		Kind:     p.Kind,
		Text:     p.Text,
		Markup:   p.Markup,
		Severity: p.Severity,
	}
}

// Item is one policy entity flagged by a module.
type Item struct {
	ID     string
	Passed bool
	proofs []Proof
}

func NewItem(id string) *Item {
	return &Item{ID: id}
}

// AddProof appends p; detection order is preserved.
func (it *Item) AddProof(p Proof) {
	it.proofs = append(it.proofs, p)
}

// Proofs returns a copy of the item's proofs in detection order.
func (it *Item) Proofs() []Proof {
	out := make([]Proof, len(it.proofs))
	copy(out, it.proofs)
	return out
}

func (it *Item) NumProofs() int { return len(it.proofs) }

// Severity is the maximum severity over the item's proofs, or SevNone.
func (it *Item) Severity() Severity {
	worst := SevNone
	for _, p := range it.proofs {
		if p.Severity > worst {
			worst = p.Severity
		}
	}
	return worst
}

// HasProof reports whether a proof with the given index and kind is present.
func (it *Item) HasProof(index int, kind EntityKind) bool {
	for _, p := range it.proofs {
		if p.Index == index && p.Kind == kind {
			return true
		}
	}
	return false
}

func (it *Item) clone() *Item {
	c := &Item{ID: it.ID, Passed: it.Passed, proofs: make([]Proof, 0, len(it.proofs))}
	for _, p := range it.proofs {
		c.proofs = append(c.proofs, p.Duplicate())
	}
	return c
}

type itemJSON struct {
	ID       string   `json:"id"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Proofs   []Proof  `json:"proofs"`
}

func (it *Item) MarshalJSON() ([]byte, error) {
	proofs := it.proofs
	if proofs == nil {
		proofs = []Proof{}
	}
	return json.Marshal(itemJSON{ID: it.ID, Passed: it.Passed, Severity: it.Severity(), Proofs: proofs})
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var v itemJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	it.ID = v.ID
	it.Passed = v.Passed
	it.proofs = v.Proofs
	return nil
}

// Result is the evidence produced by a single module run.
type Result struct {
	Module   string
	ItemKind EntityKind
	items    []*Item
	index    map[string]int
}

func NewResult(module string, kind EntityKind) (*Result, error) {
	if module == "" {
		return nil, fmt.Errorf("%w: result needs a module name", ErrInvalidArgument)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: item kind %d", ErrInvalidArgument, int(kind))
	}
	return &Result{Module: module, ItemKind: kind, index: map[string]int{}}, nil
}

// AddItem appends it. Identifiers are unique within a result.
func (r *Result) AddItem(it *Item) error {
	if it == nil || it.ID == "" {
		return fmt.Errorf("%w: item needs an identifier", ErrInvalidArgument)
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if _, ok := r.index[it.ID]; ok {
		return fmt.Errorf("%w: %q in result of %s", ErrDuplicateItem, it.ID, r.Module)
	}
	r.index[it.ID] = len(r.items)
	r.items = append(r.items, it)
	return nil
}

// Item looks up an item by identifier.
func (r *Result) Item(id string) (*Item, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.items[i], true
}

// Items returns the items in insertion order.
func (r *Result) Items() []*Item {
	out := make([]*Item, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Result) Len() int { return len(r.items) }

// Failing returns the items whose test did not pass.
func (r *Result) Failing() []*Item {
	var out []*Item
	for _, it := range r.items {
		if !it.Passed {
			out = append(out, it)
		}
	}
	return out
}

// Severity is the maximum severity over every failing item.
func (r *Result) Severity() Severity {
	worst := SevNone
	for _, it := range r.Failing() {
		if s := it.Severity(); s > worst {
			worst = s
		}
	}
	return worst
}

// Histogram counts failing items by effective severity.
func (r *Result) Histogram() map[Severity]int {
	h := make(map[Severity]int, len(severityNames))
	for _, s := range Severities() {
		h[s] = 0
	}
	for _, it := range r.Failing() {
		h[it.Severity()]++
	}
	return h
}

// Clone deep-copies r so it can be kept after the owning module is freed.
func (r *Result) Clone() *Result {
	c := &Result{Module: r.Module, ItemKind: r.ItemKind, index: make(map[string]int, len(r.items))}
	for i, it := range r.items {
		c.items = append(c.items, it.clone())
		c.index[it.ID] = i
	}
	return c
}

type resultJSON struct {
	Module   string     `json:"module"`
	ItemKind EntityKind `json:"item_kind"`
	Items    []*Item    `json:"items"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	items := r.items
	if items == nil {
		items = []*Item{}
	}
	return json.Marshal(resultJSON{Module: r.Module, ItemKind: r.ItemKind, Items: items})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var v resultJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	r.Module = v.Module
	r.ItemKind = v.ItemKind
	r.items = nil
	r.index = map[string]int{}
	for _, it := range v.Items {
		if err := r.AddItem(it); err != nil {
			return err
		}
	}
	return nil
}
