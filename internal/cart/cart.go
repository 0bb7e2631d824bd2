package cart

import (
	"sync/atomic"

	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Option configures a Cart.
type Option func(*Cart)

// WithConfigurationAwareMerge only merges lines whose variant and step
// selections are equal too. By default lines merge on product id alone.
func WithConfigurationAwareMerge() Option {
	return func(c *Cart) {
		c.configurationAware = true
	}
}

// WithIDGenerator overrides the synthetic id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Cart) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Cart holds an immutable slice of entries that is swapped atomically on every
// mutation, so concurrent callers never lose an update.
type Cart struct {
	entries            atomic.Pointer[[]LineItem]
	configurationAware bool
	newID              func() string
}

// New returns an empty cart.
func New(opts ...Option) *Cart {
	c := &Cart{newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	empty := []LineItem{}
	c.entries.Store(&empty)
	return c
}

func (c *Cart) load() []LineItem {
	if p := c.entries.Load(); p != nil {
		return *p
	}
	return nil
}

// update applies fn to the current entries and publishes the result with a
// compare-and-swap, retrying on contention. fn must not mutate its input.
func (c *Cart) update(fn func(current []LineItem) ([]LineItem, error)) error {
	for {
		old := c.entries.Load()
		var current []LineItem
		if old != nil {
			current = *old
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if c.entries.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

func (c *Cart) mergeable(existing, incoming LineItem) bool {
	if existing.Product.ID != incoming.Product.ID {
		return false
	}
	if existing.HasObservation() || incoming.HasObservation() {
		return false
	}
	if !c.configurationAware {
		return true
	}
	return existing.ComboType == incoming.ComboType && existing.Selections.Equal(incoming.Selections)
}

// Add merges item into a matching entry or appends it with a fresh id. It
// returns the resulting entry.
func (c *Cart) Add(item LineItem) LineItem {
	item = item.clone()
	item.Observation = NormalizeObservation(item.Observation)
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	freshID := c.newID()

	var result LineItem
	_ = c.update(func(current []LineItem) ([]LineItem, error) {
		next := make([]LineItem, 0, len(current)+1)
		merged := false
		for _, existing := range current {
			if !merged && c.mergeable(existing, item) {
				existing.Quantity += item.Quantity
				result = existing
				merged = true
			}
			next = append(next, existing)
		}
		if !merged {
			added := item
			added.ID = freshID
			next = append(next, added)
			result = added
		}
		return next, nil
	})
	return result
}

func indexOf(entries []LineItem, id string) int {
	for i, entry := range entries {
		if entry.ID == id {
			return i
		}
	}
	for i, entry := range entries {
		if entry.ID == "" && entry.Product.ID == id {
			return i
		}
	}
	return -1
}

// Remove deletes the entry with the given synthetic id, falling back to the
// product id for entries that were never assigned one.
func (c *Cart) Remove(id string) error {
	return c.update(func(current []LineItem) ([]LineItem, error) {
		idx := indexOf(current, id)
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		next := make([]LineItem, 0, len(current)-1)
		next = append(next, current[:idx]...)
		return append(next, current[idx+1:]...), nil
	})
}

// UpdateQuantity applies delta to the entry. A resulting quantity of zero or
// less removes the entry.
func (c *Cart) UpdateQuantity(id string, delta int) error {
	return c.update(func(current []LineItem) ([]LineItem, error) {
		idx := indexOf(current, id)
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		next := make([]LineItem, 0, len(current))
		for i, entry := range current {
			if i == idx {
				entry.Quantity += delta
				if entry.Quantity <= 0 {
					continue
				}
			}
			next = append(next, entry)
		}
		return next, nil
	})
}

// Items returns a copy of the entries.
func (c *Cart) Items() []LineItem {
	current := c.load()
	out := make([]LineItem, len(current))
	for i, entry := range current {
		out[i] = entry.clone()
	}
	return out
}

// Total sums unit price times quantity over every entry.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range c.load() {
		total = total.Add(entry.LineTotal())
	}
	return total
}

// ItemCount sums quantities, which differs from the number of entries.
func (c *Cart) ItemCount() int {
	count := 0
	for _, entry := range c.load() {
		count += entry.Quantity
	}
	return count
}

// Len returns the number of distinct entries.
func (c *Cart) Len() int {
	return len(c.load())
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Clear drops every entry.
func (c *Cart) Clear() {
	empty := []LineItem{}
	c.entries.Store(&empty)
}

// Restore replaces the entries wholesale, typically from a persisted snapshot.
// Entries with a non-positive quantity are dropped.
func (c *Cart) Restore(items []LineItem) {
	next := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		next = append(next, item.clone())
	}
	c.entries.Store(&next)
}
