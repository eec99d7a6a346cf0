// Package storage provides persistence backends for preference types and preference rows.
package storage

import (
	"github.com/CreativeUnicorns/cinehub"
)

var (
	_ cinehub.Storage = (*MemoryStorage)(nil)
	_ cinehub.Storage = (*SQLiteStorage)(nil)
	_ cinehub.Storage = (*PostgresStorage)(nil)
)

// keyNames returns the distinct preference names of keys and a set for exact key matching.
func keyNames(keys []cinehub.Key) ([]string, map[cinehub.Key]bool) {
	set := make(map[cinehub.Key]bool, len(keys))
	seen := make(map[string]bool, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		set[k] = true
		if !seen[k.Name] {
			seen[k.Name] = true
			names = append(names, k.Name)
		}
	}
	return names, set
}
