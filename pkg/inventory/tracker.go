package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/stackplan/stackplan/pkg/plan"
)

// Item represents a tracked provisioned resource
type Item struct {
	// LogicalID is the unique identifier for this item (step id from the plan)
	LogicalID string `json:"logicalId"`

	// Type is the resource type of the provisioned resource
	Type string `json:"type"`

	// Category is the resource category from the schema registry
	Category string `json:"category,omitempty"`

	// Hash is the content hash of the resolved step (for drift detection)
	Hash string `json:"hash"`

	// Status tracks the current state of the resource
	Status ItemStatus `json:"status"`
}

// ItemStatus represents the status of an inventory item
type ItemStatus string

const (
	// ItemStatusCreated means the resource was successfully created
	ItemStatusCreated ItemStatus = "Created"

	// ItemStatusOrphaned means the resource is no longer in the plan
	ItemStatusOrphaned ItemStatus = "Orphaned"

	// ItemStatusPruned means the resource was deleted
	ItemStatusPruned ItemStatus = "Pruned"

	// ItemStatusFailed means the resource failed to create
	ItemStatusFailed ItemStatus = "Failed"
)

// Inventory is a collection of tracked resources
type Inventory struct {
	// Items contains all tracked resources keyed by logical id
	Items map[string]Item `json:"items"`
}

// Tracker manages inventory of provisioned resources across compile
// runs. Comparing a stored inventory against the current plan yields
// the resources to prune.
type Tracker struct {
	mu sync.RWMutex

	// inventory is the current inventory state
	inventory *Inventory

	// generation tracks changes to the inventory
	generation int64
}

// NewTracker creates a new inventory tracker
func NewTracker() *Tracker {
	return &Tracker{
		inventory: &Inventory{
			Items: make(map[string]Item),
		},
	}
}

// NewTrackerFromInventory creates a tracker from an existing inventory
func NewTrackerFromInventory(inv *Inventory) *Tracker {
	if inv == nil {
		inv = &Inventory{
			Items: make(map[string]Item),
		}
	}
	if inv.Items == nil {
		inv.Items = make(map[string]Item)
	}
	return &Tracker{
		inventory: inv,
	}
}

// RecordCreated records that a step's resource was successfully created
func (t *Tracker) RecordCreated(step *plan.Step) Item {
	return t.record(step, ItemStatusCreated)
}

// RecordFailed records that a step's resource failed to create
func (t *Tracker) RecordFailed(step *plan.Step) Item {
	return t.record(step, ItemStatusFailed)
}

func (t *Tracker) record(step *plan.Step, status ItemStatus) Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := Item{
		LogicalID: step.LogicalID,
		Type:      step.Type,
		Category:  string(step.Category),
		Hash:      ComputeHash(step),
		Status:    status,
	}

	t.inventory.Items[step.LogicalID] = item
	t.generation++

	return item
}

// RecordPruned records that a resource was pruned
func (t *Tracker) RecordPruned(logicalID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if item, ok := t.inventory.Items[logicalID]; ok {
		item.Status = ItemStatusPruned
		t.inventory.Items[logicalID] = item
		t.generation++
	}
}

// Remove removes an item from the inventory
func (t *Tracker) Remove(logicalID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.inventory.Items, logicalID)
	t.generation++
}

// Get returns an inventory item by logical id
func (t *Tracker) Get(logicalID string) (Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	item, ok := t.inventory.Items[logicalID]
	return item, ok
}

// GetAll returns a copy of all inventory items sorted by logical id
func (t *Tracker) GetAll() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]Item, 0, len(t.inventory.Items))
	for _, item := range t.inventory.Items {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].LogicalID < items[j].LogicalID
	})

	return items
}

// GetInventory returns a copy of the inventory
func (t *Tracker) GetInventory() *Inventory {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make(map[string]Item, len(t.inventory.Items))
	for k, v := range t.inventory.Items {
		items[k] = v
	}

	return &Inventory{Items: items}
}

// FindOrphaned identifies resources that are in the inventory but not
// in the given plan. These are resources whose declarations were
// removed from the template since the last run.
func (t *Tracker) FindOrphaned(p *plan.Plan) []Item {
	current := make(map[string]bool, p.Size())
	for _, step := range p.Steps {
		current[step.LogicalID] = true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var orphaned []Item
	for id, item := range t.inventory.Items {
		if item.Status == ItemStatusPruned {
			continue
		}

		if !current[id] {
			item.Status = ItemStatusOrphaned
			orphaned = append(orphaned, item)
		}
	}

	sort.Slice(orphaned, func(i, j int) bool {
		return orphaned[i].LogicalID < orphaned[j].LogicalID
	})

	return orphaned
}

// MarkOrphaned marks items as orphaned without removing them
func (t *Tracker) MarkOrphaned(logicalIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range logicalIDs {
		if item, ok := t.inventory.Items[id]; ok {
			item.Status = ItemStatusOrphaned
			t.inventory.Items[id] = item
		}
	}
	t.generation++
}

// HasDrift checks if a step's resolved content differs from what was
// recorded when its resource was created
func (t *Tracker) HasDrift(step *plan.Step) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	item, ok := t.inventory.Items[step.LogicalID]
	if !ok {
		return false // Not tracked, can't detect drift
	}

	return item.Hash != ComputeHash(step)
}

// UpdateHash updates the hash for an item (after accepting drift)
func (t *Tracker) UpdateHash(logicalID string, newHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if item, ok := t.inventory.Items[logicalID]; ok {
		item.Hash = newHash
		t.inventory.Items[logicalID] = item
		t.generation++
	}
}

// Size returns the number of items in the inventory
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.inventory.Items)
}

// Generation returns the current generation of the inventory
func (t *Tracker) Generation() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Clear removes all items from the inventory
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inventory.Items = make(map[string]Item)
	t.generation++
}

// ComputeHash computes a content hash for a resolved step
// This is used for drift detection
func ComputeHash(step *plan.Step) string {
	if step == nil {
		return ""
	}

	data, err := json.Marshal(step)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Serialize serializes the inventory to JSON
func (t *Tracker) Serialize() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return json.Marshal(t.inventory)
}

// Deserialize deserializes the inventory from JSON
func (t *Tracker) Deserialize(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("failed to deserialize inventory: %w", err)
	}

	if inv.Items == nil {
		inv.Items = make(map[string]Item)
	}

	t.inventory = &inv
	t.generation++
	return nil
}
