package lexical

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Persisted index keys.
const (
	UnconsolidatedKey = "lexical:unconsolidated"
	ConsolidatedKey   = "lexical:consolidated"
)

const snapshotVersion = 2

// snapshot is the persisted form of the index. The unconsolidated form
// carries only records and is reclassified on load; the consolidated form
// also carries the field scripts of every record. Sequence increases with
// every write so the newer of two surviving forms can be told apart.
type snapshot struct {
	Version      int            `json:"version"`
	Sequence     uint64         `json:"sequence"`
	Consolidated bool           `json:"consolidated"`
	Changes      int            `json:"changes,omitempty"`
	Records      []Record       `json:"records"`
	Scripts      []fieldScripts `json:"scripts,omitempty"`
}

func encodeSnapshot(s snapshot) ([]byte, error) {
	s.Version = snapshotVersion
	sort.Slice(s.Records, func(i, j int) bool { return s.Records[i].ID < s.Records[j].ID })
	sort.Slice(s.Scripts, func(i, j int) bool { return s.Scripts[i].ID < s.Scripts[j].ID })
	return json.Marshal(s)
}

func decodeSnapshot(data []byte) (snapshot, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return snapshot{}, err
	}
	if s.Version != snapshotVersion {
		return snapshot{}, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if s.Consolidated && len(s.Scripts) != len(s.Records) {
		return snapshot{}, fmt.Errorf("consolidated snapshot has %d script sets for %d records", len(s.Scripts), len(s.Records))
	}
	seen := make(map[string]bool, len(s.Records))
	for _, r := range s.Records {
		if r.ID == "" || seen[r.ID] {
			return snapshot{}, fmt.Errorf("invalid or duplicate record id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return s, nil
}
