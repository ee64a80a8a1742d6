package tracker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sadopc/tomato/internal/pomo"
)

// Categories is the category set. It is never empty and, unless the
// persisted state was edited by hand, exactly one category is the default.
type Categories struct {
	p        Persister
	log      *slog.Logger
	list     []pomo.Category
	newID    func() string
	sessions *Sessions
}

func loadCategories(p Persister, log *slog.Logger, newID func() string) *Categories {
	c := &Categories{p: p, log: log, newID: newID}

	data, ok, err := p.Load(KeyCategories)
	switch {
	case err != nil:
		log.Error("load failed, using default categories",
			"error", &pomo.PersistenceError{Op: "load", Key: KeyCategories, Err: err})
		c.list = c.defaults()
		return c
	case !ok:
		c.list = c.defaults()
		c.save()
		return c
	}

	if err := json.Unmarshal(data, &c.list); err != nil {
		log.Error("categories record is corrupt, recreating defaults", "error", err)
		c.list = c.defaults()
		c.save()
		return c
	}
	if len(c.list) == 0 {
		c.list = c.defaults()
		c.save()
	}
	return c
}

func (c *Categories) defaults() []pomo.Category {
	return []pomo.Category{
		{ID: c.newID(), Name: "Work", Color: "#0891b2", IsDefault: true},
		{ID: c.newID(), Name: "Learn", Color: "#8b5cf6"},
	}
}

// List returns a copy of the categories in insertion order.
func (c *Categories) List() []pomo.Category {
	return slices.Clone(c.list)
}

func (c *Categories) Len() int { return len(c.list) }

func (c *Categories) Get(id string) (pomo.Category, bool) {
	if i := c.index(id); i >= 0 {
		return c.list[i], true
	}
	return pomo.Category{}, false
}

// Default returns the flagged default category, or the first category if
// none is flagged.
func (c *Categories) Default() pomo.Category {
	for _, cat := range c.list {
		if cat.IsDefault {
			return cat
		}
	}
	return c.list[0]
}

// Add creates a non-default category. Names are trimmed and must be unique
// regardless of case; a blank colour falls back to pomo.DefaultColor.
func (c *Categories) Add(name, color string) (pomo.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return pomo.Category{}, &pomo.ValidationError{Field: "name"}
	}
	if c.nameTaken(name, "") {
		return pomo.Category{}, &pomo.DuplicateNameError{Name: name}
	}

	cat := pomo.Category{
		ID:    c.newID(),
		Name:  name,
		Color: colorOrDefault(color),
	}
	c.list = append(c.list, cat)
	c.save()
	c.log.Info("category added", "id", cat.ID, "name", cat.Name)
	return cat, nil
}

// Update renames or recolours a category. Sessions already recorded keep
// the name and colour they were recorded with.
func (c *Categories) Update(id, name, color string) error {
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("update category %q: %w", id, pomo.ErrNotFound)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &pomo.ValidationError{Field: "name"}
	}
	if c.nameTaken(name, id) {
		return &pomo.DuplicateNameError{Name: name}
	}

	c.list[i].Name = name
	c.list[i].Color = colorOrDefault(color)
	c.save()
	return nil
}

// SetDefault makes id the only default category.
func (c *Categories) SetDefault(id string) error {
	if c.index(id) < 0 {
		return fmt.Errorf("set default category %q: %w", id, pomo.ErrNotFound)
	}
	for i := range c.list {
		c.list[i].IsDefault = c.list[i].ID == id
	}
	c.save()
	return nil
}

// DeletePrompt is the confirmation message shown before deleting id.
func (c *Categories) DeletePrompt(id string) string {
	i := c.index(id)
	if i < 0 {
		return ""
	}
	msg := fmt.Sprintf("Are you sure you want to delete %q?", c.list[i].Name)
	if c.sessions == nil || len(c.list) < 2 {
		return msg
	}
	if n := c.sessions.CountByCategory(id); n > 0 {
		msg += fmt.Sprintf(" %d session(s) will be reassigned to %q.", n, c.list[c.successor(i)].Name)
	}
	return msg
}

// Delete removes a category after confirm approves (a nil confirm always
// approves). Sessions that reference it move to the default category, with
// their name and colour snapshots refreshed. When the default itself is
// deleted another category is promoted first. It reports whether the
// category was removed.
func (c *Categories) Delete(id string, confirm Confirm) (bool, error) {
	if len(c.list) <= 1 {
		return false, &pomo.LastCategoryError{}
	}
	i := c.index(id)
	if i < 0 {
		return false, fmt.Errorf("delete category %q: %w", id, pomo.ErrNotFound)
	}
	if confirm != nil && !confirm(c.DeletePrompt(id)) {
		return false, nil
	}

	heir := c.successor(i)
	for j := range c.list {
		c.list[j].IsDefault = j == heir
	}
	target := c.list[heir]
	c.list = slices.Delete(c.list, i, i+1)

	moved := 0
	if c.sessions != nil {
		moved = c.sessions.Reassign(id, target)
	}
	c.save()
	c.log.Info("category deleted", "id", id, "reassigned", moved, "to", target.Name)
	return true, nil
}

// successor is the index of the category that is the default once the
// category at i is gone.
func (c *Categories) successor(i int) int {
	first := -1
	for j, cat := range c.list {
		if j == i {
			continue
		}
		if cat.IsDefault {
			return j
		}
		if first < 0 {
			first = j
		}
	}
	return first
}

func (c *Categories) index(id string) int {
	return slices.IndexFunc(c.list, func(cat pomo.Category) bool { return cat.ID == id })
}

// Lookup finds a category by id or, failing that, by case-insensitive name.
func (c *Categories) Lookup(ref string) (pomo.Category, bool) {
	if cat, ok := c.Get(ref); ok {
		return cat, true
	}
	for _, cat := range c.list {
		if strings.EqualFold(cat.Name, strings.TrimSpace(ref)) {
			return cat, true
		}
	}
	return pomo.Category{}, false
}

func (c *Categories) nameTaken(name, exceptID string) bool {
	for _, cat := range c.list {
		if cat.ID != exceptID && strings.EqualFold(cat.Name, name) {
			return true
		}
	}
	return false
}

func (c *Categories) save() {
	save(c.p, c.log, KeyCategories, c.list)
}

func colorOrDefault(color string) string {
	if color = strings.TrimSpace(color); color == "" {
		return pomo.DefaultColor
	}
	return color
}
