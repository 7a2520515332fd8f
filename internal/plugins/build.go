package plugins

import (
	"fmt"

	"arc-framework/launchpad/internal/config"
)

// Build maps the enabled plugin names in cfg to plugin instances, keeping the
// configured order.
func Build(cfg config.PluginsConfig) ([]Plugin, error) {
	out := make([]Plugin, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		switch name {
		case KVName:
			out = append(out, NewKVPlugin(cfg.Redis))
		case EventsName:
			out = append(out, NewEventsPlugin(cfg.NATS))
		case StoreName:
			out = append(out, NewStorePlugin(cfg.Postgres))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
		}
	}
	return out, nil
}
