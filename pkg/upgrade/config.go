package upgrade

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of upgrades.yaml: an ordered list of
// named upgrades with activation heights. Migrations themselves are not
// data — they're compiled Go functions registered by name in builtins —
// which is why the registry lookup in LoadFile is the bridge between the
// declarative file and the Scheduler's executable Upgrade list.
type FileConfig struct {
	Upgrades []FileUpgrade `yaml:"upgrades"`
}

type FileUpgrade struct {
	Name             string `yaml:"name"`
	ActivationHeight int64  `yaml:"activation_height"`
}

// LoadFile reads path and resolves each declared upgrade's migrations from
// the builtin registry, erroring on any name the binary doesn't know how
// to run — an upgrade declared in config but never compiled in would
// otherwise silently no-op at its activation height, which spec §8's
// upgrade-exclusivity invariant treats as a correctness bug, not a skip.
func LoadFile(path string) (*Scheduler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("upgrade: read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("upgrade: parse %s: %w", path, err)
	}

	upgrades := make([]Upgrade, 0, len(fc.Upgrades))
	for _, u := range fc.Upgrades {
		migrations, ok := builtins[u.Name]
		if !ok {
			return nil, fmt.Errorf("upgrade: %q declared in %s has no registered migrations", u.Name, path)
		}
		upgrades = append(upgrades, Upgrade{
			Name:             u.Name,
			ActivationHeight: u.ActivationHeight,
			Migrations:       migrations,
		})
	}
	return NewScheduler(upgrades), nil
}

// DefaultScheduler returns the scheduler a node runs with absent an
// upgrades.yaml override: just Aspen, at the height the caller supplies
// (the chain's genesis configuration names this height, not this package).
func DefaultScheduler(aspenActivationHeight int64) *Scheduler {
	return NewScheduler([]Upgrade{
		{Name: AspenName, ActivationHeight: aspenActivationHeight, Migrations: builtins[AspenName]},
	})
}
