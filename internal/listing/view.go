package listing

import (
	"sync"

	"projet/internal/record"
)

// Subscriber is the live side of record.Store.
type Subscriber interface {
	Subscribe(ownerID string, fn func([]record.Record)) (cancel func())
}

// View keeps the filtered list of one owner's records current. onChange is
// called with the visible records every time records, tag or search change
// while the view is active. It runs under the view's lock and must not call
// back into the view.
type View struct {
	store    Subscriber
	ownerID  string
	onChange func([]record.Record)

	mu       sync.Mutex
	active   bool
	records  []record.Record
	criteria Criteria
	visible  []record.Record
	cancel   func()
}

func NewView(store Subscriber, ownerID string, criteria Criteria, onChange func([]record.Record)) *View {
	return &View{
		store:    store,
		ownerID:  ownerID,
		criteria: criteria,
		onChange: onChange,
		visible:  []record.Record{},
	}
}

// Activate subscribes to the owner's records. Teardown must follow.
func (v *View) Activate() {
	v.mu.Lock()
	if v.active || v.cancel != nil {
		v.mu.Unlock()
		return
	}
	v.active = true
	v.mu.Unlock()

	cancel := v.store.Subscribe(v.ownerID, v.setRecords)

	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()
}

func (v *View) setRecords(records []record.Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.active {
		return
	}
	v.records = records
	v.recompute()
}

func (v *View) SetTag(tag string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria.Tag = tag
	v.recompute()
}

func (v *View) SetSearch(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria.Search = term
	v.recompute()
}

func (v *View) Criteria() Criteria {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.criteria
}

func (v *View) Visible() []record.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]record.Record, len(v.visible))
	copy(out, v.visible)
	return out
}

// Teardown cancels the subscription. No callback runs after it returns.
func (v *View) Teardown() {
	v.mu.Lock()
	v.active = false
	cancel := v.cancel
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (v *View) recompute() {
	v.visible = Filter(v.records, v.criteria)
	if v.active && v.onChange != nil {
		v.onChange(v.visible)
	}
}
