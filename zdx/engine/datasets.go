// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import "sort"

// DatasetInfo is public dataset registry entry
type DatasetInfo struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Format   string `json:"format"`
	RowCount int64  `json:"rowCount"`
}

// ListDatasets return all registered datasets ordered by display name
func (e *Engine) ListDatasets() []DatasetInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]DatasetInfo, 0, len(e.datasets))
	for id, ds := range e.datasets {
		out = append(out, DatasetInfo{Id: id, Name: ds.name, Format: ds.format, RowCount: ds.rowCount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Id < out[j].Id
	})
	return out
}
