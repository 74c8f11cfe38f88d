package checking

import (
	"context"

	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
)

// ListStore adapts a line-item list controller to ItemStore.
type ListStore struct {
	List *listsync.Controller[model.LineItem]
}

func (s ListStore) Item(id int64) (model.LineItem, bool) {
	return s.List.Find(func(it model.LineItem) bool { return it.ID == id })
}

func (s ListStore) ReplaceItem(id int64, update func(model.LineItem) model.LineItem) bool {
	return s.List.ReplaceOne(func(it model.LineItem) bool { return it.ID == id }, update)
}

// Reload fetches the list again from whatever state it is in.
func (s ListStore) Reload(ctx context.Context) error {
	return s.List.Load(ctx)
}
