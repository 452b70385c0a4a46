package core

import (
	"go/types"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDataStoreImplementationsHardening ensures only sanctioned persistence
// packages provide concrete implementations of the model.DataStore
// interface. This guards architectural drift from introducing additional
// backends outside the vetted locations (memory + sqlite + postgres)
// without an explicit test update.
func TestDataStoreImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "simcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var dataStore *types.Interface
	for _, p := range pkgs {
		if p.PkgPath == "simcore/pkg/model" {
			obj := p.Types.Scope().Lookup("DataStore")
			if obj == nil {
				t.Fatalf("model.DataStore not found")
			}
			iface, ok := obj.Type().Underlying().(*types.Interface)
			if !ok {
				t.Fatalf("model.DataStore is not an interface")
			}
			dataStore = iface
		}
	}
	if dataStore == nil {
		t.Fatalf("failed to resolve DataStore interface")
	}
	allowed := map[string]struct{}{
		"simcore/internal/infra/persistence/memory":   {},
		"simcore/internal/infra/persistence/sqlite":   {},
		"simcore/internal/infra/persistence/postgres": {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			obj := p.Types.Scope().Lookup(name)
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), dataStore) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		t.Fatalf("unexpected DataStore implementations (update the allowed list intentionally when adding a backend): %v", unexpected)
	}
}
