package shoebox

import (
	"slices"
	"strings"

	"github.com/atinyakov/shoebox/internal/models"
)

// Active returns the cards on the working surface in collection order.
func (s *Store) Active() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partitionLocked(false)
}

// Archived returns the cards in the trash in collection order.
func (s *Store) Archived() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partitionLocked(true)
}

// FilteredActive returns the active cards that match the search query and the color filter.
func (s *Store) FilteredActive() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredActiveLocked()
}

// Displayed returns the trash when the archive view is on, otherwise the filtered active cards.
// Search and color filters never apply to the trash.
func (s *Store) Displayed() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.archiveView {
		return s.partitionLocked(true)
	}
	return s.filteredActiveLocked()
}

// TotalWordCount sums the whitespace-delimited words of all active cards.
func (s *Store) TotalWordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.cards {
		if !c.IsArchived {
			total += len(strings.Fields(c.Content))
		}
	}
	return total
}

// IsFiltered reports whether a search query or a color filter is in effect.
func (s *Store) IsFiltered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.search) != "" || len(s.colors) > 0
}

// SetSearch sets the free-text search query.
func (s *Store) SetSearch(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = query
}

// Search returns the current search query.
func (s *Store) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// ToggleColorFilter adds color to the filter set, or removes it if present.
func (s *Store) ToggleColorFilter(color models.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colors[color]; ok {
		delete(s.colors, color)
		return
	}
	s.colors[color] = struct{}{}
}

// SetColorFilters replaces the filter set. No colors clears it.
func (s *Store) SetColorFilters(colors ...models.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors = make(map[models.Color]struct{}, len(colors))
	for _, c := range colors {
		s.colors[c] = struct{}{}
	}
}

// ColorFilters returns the selected colors in display order.
func (s *Store) ColorFilters() []models.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Color
	for _, c := range models.Colors() {
		if _, ok := s.colors[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ClearFilters drops the search query and the color filter.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = ""
	s.colors = make(map[models.Color]struct{})
}

// SetArchiveView switches between the working surface and the trash.
func (s *Store) SetArchiveView(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiveView = on
}

// ArchiveView reports whether the trash is displayed.
func (s *Store) ArchiveView() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveView
}

func (s *Store) partitionLocked(archived bool) []models.Card {
	out := make([]models.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if c.IsArchived == archived {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) filteredActiveLocked() []models.Card {
	query := strings.ToLower(strings.TrimSpace(s.search))
	out := make([]models.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if c.IsArchived {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(c.Content), query) {
			continue
		}
		if len(s.colors) > 0 {
			if _, ok := s.colors[c.Color]; !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return slices.Clip(out)
}
