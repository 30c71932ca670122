package providers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fixture loads a canned provider payload for mock mode. The parser
// path downstream is identical to a live response.
func (d Deps) fixture(name string) (map[string]any, error) {
	if d.FixturesDir == "" {
		return nil, fmt.Errorf("mock mode requires a fixtures directory")
	}
	raw, err := os.ReadFile(filepath.Join(d.FixturesDir, name))
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return obj, nil
}
