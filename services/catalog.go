package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"qrbar/models"
)

type CatalogAPI interface {
	GetMenu(ctx context.Context, tableID string) (*models.Menu, error)
	GetTags(ctx context.Context) ([]models.ItemMeta, error)
}

// Catalog is the menu of one table plus the tag filter chosen by the customer.
type Catalog struct {
	api     CatalogAPI
	tableID string

	mu         sync.RWMutex
	loaded     bool
	categories []models.MenuCategory
	items      map[int64]models.MenuItem
	tags       map[int64][]string
	selected   map[string]bool
}

func NewCatalog(api CatalogAPI, tableID string) *Catalog {
	return &Catalog{
		api:      api,
		tableID:  tableID,
		items:    make(map[int64]models.MenuItem),
		tags:     make(map[int64][]string),
		selected: make(map[string]bool),
	}
}

// Load fetches the menu and the item metadata concurrently. Without metadata
// the menu is still usable, just with no tags.
func (c *Catalog) Load(ctx context.Context) error {
	var (
		menu *models.Menu
		meta []models.ItemMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := c.api.GetMenu(gctx, c.tableID)
		if err != nil {
			return fmt.Errorf("load menu: %w", err)
		}
		menu = m
		return nil
	})
	g.Go(func() error {
		m, err := c.api.GetTags(gctx)
		if err != nil {
			log.Warn().Err(err).Str("table_id", c.tableID).Msg("item metadata unavailable")
			return nil
		}
		meta = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if menu == nil {
		menu = &models.Menu{}
	}
	categories := menu.Grouped()
	items := make(map[int64]models.MenuItem)
	for ci := range categories {
		for _, it := range categories[ci].Items {
			if it.Category == "" {
				it.Category = categories[ci].Name
			}
			items[it.ID] = it
		}
	}
	tags := make(map[int64][]string, len(meta))
	for _, m := range meta {
		tags[m.ID] = normalizeTags(m.Tags)
	}

	c.mu.Lock()
	c.categories = categories
	c.items = items
	c.tags = tags
	c.loaded = true
	for t := range c.selected {
		if !c.tagKnownLocked(t) {
			delete(c.selected, t)
		}
	}
	c.mu.Unlock()

	log.Debug().Str("table_id", c.tableID).Int("items", len(items)).Int("tagged", len(tags)).Msg("catalog loaded")
	return nil
}

func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Categories returns the category names in menu order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}

func (c *Catalog) Item(id int64) (models.MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// ItemTags returns the tags of an item, nil when unknown.
func (c *Catalog) ItemTags(id int64) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tags[id]...)
}

// AvailableTags returns every tag used by at least one item, sorted.
func (c *Catalog) AvailableTags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := make(map[string]bool)
	for _, ts := range c.tags {
		for _, t := range ts {
			set[t] = true
		}
	}
	return sortedKeys(set)
}

// ToggleTag flips tag in the filter and reports whether it is now selected.
func (c *Catalog) ToggleTag(tag string) bool {
	tag = normalizeTag(tag)
	if tag == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected[tag] {
		delete(c.selected, tag)
		return false
	}
	c.selected[tag] = true
	return true
}

func (c *Catalog) SelectedTags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.selected)
}

func (c *Catalog) ClearTags() {
	c.mu.Lock()
	c.selected = make(map[string]bool)
	c.mu.Unlock()
}

// FilteredItems returns the items of category carrying every selected tag.
// An empty category means the whole menu.
func (c *Catalog) FilteredItems(category string) []models.MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.MenuItem
	for _, cat := range c.categories {
		if category != "" && cat.Name != category {
			continue
		}
		for _, it := range cat.Items {
			if c.matchesLocked(c.tags[it.ID]) {
				out = append(out, c.items[it.ID])
			}
		}
	}
	return out
}

// FilterResults applies the tag filter to search results, using the tags
// the results carry and falling back to the catalog metadata.
func (c *Catalog) FilterResults(results []models.SearchResult) []models.SearchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.selected) == 0 {
		return append([]models.SearchResult(nil), results...)
	}
	var out []models.SearchResult
	for _, r := range results {
		tags := normalizeTags(r.Tags)
		if len(tags) == 0 {
			tags = c.tags[r.ID]
		}
		if c.matchesLocked(tags) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Catalog) matchesLocked(tags []string) bool {
	for sel := range c.selected {
		found := false
		for _, t := range tags {
			if t == sel {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *Catalog) tagKnownLocked(tag string) bool {
	for _, ts := range c.tags {
		for _, t := range ts {
			if t == tag {
				return true
			}
		}
	}
	return false
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if n := normalizeTag(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
