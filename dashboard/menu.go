package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"food-ordering/api/models"
	"food-ordering/api/realtime"
)

type MenuSource interface {
	Menu(ctx context.Context, restaurantID string) ([]*models.MenuItem, error)
	SubscribeMenu(ctx context.Context, restaurantID string) (Feed, error)
	CreateMenuItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, in models.MenuItemInput) (*models.MenuItem, error)
	SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
}

// MenuBoard is the owner's menu list.
type MenuBoard struct {
	source       MenuSource
	restaurantID string

	mu    sync.Mutex
	items []models.MenuItem

	OnChange func()

	follower follower
}

func NewMenuBoard(source MenuSource, restaurantID string) *MenuBoard {
	return &MenuBoard{source: source, restaurantID: restaurantID}
}

func (b *MenuBoard) Start(ctx context.Context) error {
	feed, err := b.source.SubscribeMenu(ctx, b.restaurantID)
	if err != nil {
		return fmt.Errorf("subscribe to menu: %w", err)
	}
	snapshot, err := b.source.Menu(ctx, b.restaurantID)
	if err != nil {
		feed.Close()
		return fmt.Errorf("load menu: %w", err)
	}

	b.mu.Lock()
	b.items = make([]models.MenuItem, 0, len(snapshot))
	for _, item := range snapshot {
		b.items = append(b.items, *item)
	}
	b.mu.Unlock()
	b.changed()

	b.follower.start(ctx, feed, b.Apply)
	return nil
}

func (b *MenuBoard) Stop() {
	b.follower.stop()
}

// Apply folds one change into the board. Inserts of known ids and updates
// of unknown ids are ignored; an update replaces the whole item.
func (b *MenuBoard) Apply(e realtime.Event) {
	if e.Table != realtime.TableMenuItems {
		return
	}

	b.mu.Lock()
	changed := false
	switch e.Type {
	case realtime.EventInsert, realtime.EventUpdate:
		var item models.MenuItem
		if err := json.Unmarshal(e.Record, &item); err != nil {
			b.mu.Unlock()
			logDecodeError(e.Table, err)
			return
		}
		i := b.indexOf(item.ID)
		switch {
		case e.Type == realtime.EventInsert && i < 0:
			b.items = append(b.items, item)
			changed = true
		case e.Type == realtime.EventUpdate && i >= 0:
			b.items[i] = item
			changed = true
		}
	case realtime.EventDelete:
		if i := b.indexOf(e.OldID); i >= 0 {
			b.items = append(b.items[:i], b.items[i+1:]...)
			changed = true
		}
	}
	b.mu.Unlock()

	if changed {
		b.changed()
	}
}

func (b *MenuBoard) indexOf(id string) int {
	for i := range b.items {
		if b.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *MenuBoard) changed() {
	if b.OnChange != nil {
		b.OnChange()
	}
}

func (b *MenuBoard) Items() []models.MenuItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.MenuItem, len(b.items))
	copy(out, b.items)
	return out
}

// Create writes a new item and adds the stored version to the board. The
// required fields are checked before anything is sent.
func (b *MenuBoard) Create(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error) {
	draft := models.MenuItem{RestaurantID: b.restaurantID, IsAvailable: true}
	in.ApplyTo(&draft)
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	stored, err := b.source.CreateMenuItem(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	b.put(*stored)
	return stored, nil
}

// Update patches the item on the board, writes the edit and then takes the
// stored item. On failure the previous item is restored.
func (b *MenuBoard) Update(ctx context.Context, id string, in models.MenuItemInput) error {
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return models.ErrNotFound
	}
	previous := b.items[i]
	patched := previous
	in.ApplyTo(&patched)
	if err := patched.Validate(); err != nil {
		b.mu.Unlock()
		return err
	}
	b.items[i] = patched
	b.mu.Unlock()
	b.changed()

	stored, err := b.source.UpdateMenuItem(ctx, id, in)
	if err != nil {
		b.mu.Lock()
		if i := b.indexOf(id); i >= 0 {
			b.items[i] = previous
		}
		b.mu.Unlock()
		b.changed()
		return fmt.Errorf("update menu item %s: %w", id, err)
	}
	if stored != nil {
		b.put(*stored)
	}
	return nil
}

// put replaces the item with the same id or appends it.
func (b *MenuBoard) put(item models.MenuItem) {
	b.mu.Lock()
	if i := b.indexOf(item.ID); i >= 0 {
		b.items[i] = item
	} else {
		b.items = append(b.items, item)
	}
	b.mu.Unlock()
	b.changed()
}

// ToggleAvailability flips is_available on the board, writes it and then
// takes the stored item. On failure the previous value is restored.
func (b *MenuBoard) ToggleAvailability(ctx context.Context, id string) error {
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return models.ErrNotFound
	}
	previous := b.items[i].IsAvailable
	b.items[i].IsAvailable = !previous
	b.mu.Unlock()
	b.changed()

	stored, err := b.source.SetAvailability(ctx, id, !previous)

	b.mu.Lock()
	if i := b.indexOf(id); i >= 0 {
		if err != nil {
			b.items[i].IsAvailable = previous
		} else if stored != nil {
			b.items[i] = *stored
		}
	}
	b.mu.Unlock()
	b.changed()

	if err != nil {
		return fmt.Errorf("toggle menu item %s: %w", id, err)
	}
	return nil
}

// Delete removes the item from the board and the store. On failure the
// item is put back in its old position.
func (b *MenuBoard) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return models.ErrNotFound
	}
	removed := b.items[i]
	b.items = append(b.items[:i], b.items[i+1:]...)
	b.mu.Unlock()
	b.changed()

	if err := b.source.DeleteMenuItem(ctx, id); err != nil {
		b.mu.Lock()
		if b.indexOf(id) < 0 {
			if i > len(b.items) {
				i = len(b.items)
			}
			b.items = append(b.items, models.MenuItem{})
			copy(b.items[i+1:], b.items[i:])
			b.items[i] = removed
		}
		b.mu.Unlock()
		b.changed()
		return fmt.Errorf("delete menu item %s: %w", id, err)
	}
	return nil
}
