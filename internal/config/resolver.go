package config

import (
	"slices"
	"strings"
)

// Resolve returns the module IDs from the configuration in load order:
// stores first, then everything else sorted, so services a module looks
// up at Provision are already registered.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if pa, pb := loadPriority(a), loadPriority(b); pa != pb {
			return pa - pb
		}
		return strings.Compare(a, b)
	})
	return ids
}

func loadPriority(id string) int {
	switch {
	case strings.HasPrefix(id, "store."):
		return 0
	case strings.HasPrefix(id, "gateway."):
		return 2
	default:
		return 1
	}
}

// ProviderOrder returns the provider preference list. Without an explicit
// chat.providers entry every configured provider.* module is used, sorted.
func ProviderOrder(cfg *Config) []string {
	if len(cfg.Chat.Providers) > 0 {
		return slices.Clone(cfg.Chat.Providers)
	}
	var ids []string
	for id := range cfg.Modules {
		if strings.HasPrefix(id, "provider.") {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
