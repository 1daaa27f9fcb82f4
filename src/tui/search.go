package tui

import (
	"strings"
)

// applyFilter narrows the phase list to phases whose name or lines contain
// the search query.
func (m *MainModel) applyFilter() {
	query := strings.ToLower(m.searchQuery)

	filtered := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		item.Matches = 0
		if query != "" {
			ok, n := item.contains(query)
			if !ok {
				continue
			}
			item.Matches = n
		}
		filtered = append(filtered, item)
	}

	m.listView.SetItems(filtered)
	m.header.SetSearch(m.searchQuery, m.searchMode)
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
		m.shownPhase = ""
	}
}
