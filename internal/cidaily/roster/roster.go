// Package roster loads the static mapping of known client machines. The
// report uses it to detect clients that went silent.
package roster

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Client is the static metadata of one known client machine.
type Client struct {
	Owner string `yaml:"owner"`
	OS    string `yaml:"os"`
	Arch  string `yaml:"arch"`
}

// Roster is the full set of known clients, indexed by client identifier.
type Roster struct {
	Clients map[string]Client `yaml:"clients"`
}

// Load reads the roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read roster %s", path)
	}
	r := &Roster{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse roster %s", path)
	}
	return r, nil
}

// IDs returns the known client identifiers, sorted.
func (r *Roster) IDs() []string {
	ids := make([]string, 0, len(r.Clients))
	for id := range r.Clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
