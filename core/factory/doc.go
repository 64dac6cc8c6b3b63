// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation. Metrics sinks and snapshot store backends are both
// built through a registry.
//
// Example usage:
//
//	reg := factory.NewRegistry[store.Store]()
//	reg.Register("sqlite", func(conf map[string]any) (store.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return store.OpenSQLite(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "fleet.db"}})
package factory
