package langs

import (
	"github.com/sourcegrid/codeindex/internal/parserapi"
	"github.com/sourcegrid/codeindex/internal/registry"
)

// RegisterAll registers every officially supported language plugin
// directly, then wires Zig in as a lazy community loader (spec.md
// §4.3) so it only pays tree-sitter construction cost if a .zig file
// is actually encountered.
func RegisterAll(reg *registry.Registry, factory *registry.Factory) error {
	plugins := []*Plugin{
		NewJavaScript(),
		NewTypeScript(),
		NewGo(),
		NewPython(),
		NewRust(),
		NewCpp(),
		NewJava(),
		NewCSharp(),
		NewPHP(),
	}
	for _, p := range plugins {
		if err := reg.Register(p, registry.RegisterOptions{}); err != nil {
			return err
		}
	}

	factory.RegisterLoaderWithPriority(".zig", "zig", "zig", CommunityPriority, func() (parserapi.Plugin, error) {
		return NewZig(), nil
	})
	return nil
}
