package export

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// WriteJSONL writes one canonical record per line. Field names come from
// the model's JSON tags and are stable across releases; the snapshot is
// re-importable.
func WriteJSONL(path string, records []model.CanonicalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return eris.Wrapf(err, "export: encode record %s", records[i].StableID)
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return f.Close()
}

// ReadJSONL loads a JSONL snapshot back into memory.
func ReadJSONL(path string) ([]model.CanonicalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var out []model.CanonicalRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec model.CanonicalRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, eris.Wrapf(err, "export: decode %s", path)
		}
		out = append(out, rec)
	}
	return out, nil
}
