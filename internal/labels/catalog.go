package labels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Brownie44l1/hanzi-api/internal/apperror"
)

// Unknown is returned by DisplayLabel for ids missing from the label mapping.
const Unknown = "unknown"

// Catalog maps model output indices to canonical ids, and canonical ids to
// display labels. It is read-only once loaded.
type Catalog struct {
	indexToID map[string]string
	idToLabel map[string]string
}

// Load reads both mapping files. Either both load or neither is returned.
func Load(classIndicesPath, idToLabelPath string) (*Catalog, error) {
	indexToID, err := readMapping(classIndicesPath)
	if err != nil {
		return nil, err
	}
	idToLabel, err := readMapping(idToLabelPath)
	if err != nil {
		return nil, err
	}
	return New(indexToID, idToLabel), nil
}

// New builds a Catalog from in-memory mappings. The maps are copied.
func New(indexToID, idToLabel map[string]string) *Catalog {
	c := &Catalog{
		indexToID: make(map[string]string, len(indexToID)),
		idToLabel: make(map[string]string, len(idToLabel)),
	}
	for k, v := range indexToID {
		c.indexToID[k] = v
	}
	for k, v := range idToLabel {
		c.idToLabel[k] = v
	}
	return c
}

// CanonicalID resolves a class index, falling back to the index itself.
func (c *Catalog) CanonicalID(classIndex int) string {
	key := strconv.Itoa(classIndex)
	if id, ok := c.indexToID[key]; ok {
		return id
	}
	return key
}

// DisplayLabel resolves a canonical id, falling back to Unknown.
func (c *Catalog) DisplayLabel(canonicalID string) string {
	if label, ok := c.idToLabel[canonicalID]; ok {
		return label
	}
	return Unknown
}

// Len returns the number of entries in each mapping.
func (c *Catalog) Len() (indices, labels int) {
	return len(c.indexToID), len(c.idToLabel)
}

// readMapping decodes a flat JSON object. String and numeric values are
// accepted; numbers keep their literal form.
func readMapping(path string) (map[string]string, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.New(apperror.CatalogLoad,
				fmt.Sprintf("label mapping %s does not exist", name)).WithPath(path)
		}
		return nil, apperror.Wrap(apperror.CatalogLoad,
			fmt.Sprintf("failed to read label mapping %s", name), err).WithPath(path)
	}

	malformed := func(cause error) error {
		return apperror.Wrap(apperror.CatalogLoad,
			fmt.Sprintf("label mapping %s is malformed", name), cause).WithPath(path)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, malformed(errors.New("unexpected data after the JSON object"))
	}
	if raw == nil {
		return nil, malformed(errors.New("expected a JSON object"))
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		default:
			return nil, malformed(fmt.Errorf("key %q: expected string or number, got %T", k, v))
		}
	}
	return out, nil
}
