package config

import (
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/sourcegrid/codeindex/internal/xerrors"
)

// LoadKDL reads an IndexConfig from a KDL file, e.g. `.indexconfig.kdl`:
//
//	workspace_path "/repo"
//	include_extensions ".ts" ".go"
//	exclude_patterns "node_modules/**"
//	max_file_size 2097152
//	max_concurrency 8
func LoadKDL(path string) (*IndexConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.ConfigInvalid("failed to read config file").WithFile(path).WithCause(err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, xerrors.ConfigInvalid("failed to parse KDL config").WithFile(path).WithCause(err)
	}

	cfg := &IndexConfig{EnablePersistence: true}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "workspace_path":
			if s, ok := firstStringArg(n); ok {
				cfg.WorkspacePath = s
			}
		case "persistence_path":
			if s, ok := firstStringArg(n); ok {
				cfg.PersistencePath = s
			}
		case "include_extensions":
			cfg.IncludeExtensions = collectStringArgs(n)
		case "exclude_patterns":
			cfg.ExcludePatterns = collectStringArgs(n)
		case "max_file_size":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxFileSize = int64(v)
			}
		case "max_concurrency":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxConcurrency = v
			}
		case "watch_debounce_ms":
			if v, ok := firstIntArg(n); ok {
				cfg.WatchDebounceMs = v
			}
		case "enable_persistence":
			if b, ok := firstBoolArg(n); ok {
				cfg.EnablePersistence = b
			}
		}
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
