package config

import (
	"os"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// mergeKDLFile overlays the contents of path onto cfg; a missing file is
// not an error, matching the teacher's LoadKDL treating absence as
// "use defaults". It returns the set of Config field names the file
// actually set, so Load can tell mergeTOMLFileIfPresent which fields KDL
// has already won on.
func mergeKDLFile(cfg *Config, path string) (map[string]bool, error) {
	touched := make(map[string]bool)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return touched, nil
		}
		return touched, err
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return touched, err
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "progressReportFrequencyMs":
			if v, ok := firstIntArg(n); ok {
				cfg.ProgressReportFrequencyMs = v
				touched["ProgressReportFrequencyMs"] = true
			}
		case "completion":
			for _, cn := range n.Children {
				if nodeName(cn) == "filterAndSort" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.CompletionFilterAndSort = b
						touched["CompletionFilterAndSort"] = true
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "threads":
					if v, ok := firstIntArg(cn); ok {
						cfg.IndexThreads = v
						touched["IndexThreads"] = true
					}
				case "timeoutSec":
					if v, ok := firstIntArg(cn); ok {
						cfg.IndexingTimeoutSec = v
						touched["IndexingTimeoutSec"] = true
					}
				}
			}
		case "cacheDir":
			if s, ok := firstStringArg(n); ok {
				cfg.CacheDir = s
				touched["CacheDir"] = true
			}
		case "serializeFormat":
			if s, ok := firstStringArg(n); ok {
				cfg.SerializeFormat = SerializeFormat(s)
				touched["SerializeFormat"] = true
			}
		case "include":
			cfg.Include = collectStringArgs(n)
			touched["Include"] = true
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
			touched["Exclude"] = true
		}
	}

	return touched, nil
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
	case string:
		if iv, err := strconv.Atoi(v); err == nil {
			return iv, true
		}
	}
	return 0, false
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

// collectStringArgs supports both inline (`include "*.cc" "*.h"`) and
// block (`include { "*.cc" }`) KDL forms, the way the teacher's
// collectStringArgs handles exclude patterns.
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
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
