package upgrade

// AspenName is the first declared upgrade (spec §4.8). The one read path
// gated by it is the validator query, which checks IsApplied(r, AspenName)
// before surfacing ValidatorSetEntry.Name (scenario S5). Whether a block
// carries price-feed vote extensions does not depend on this upgrade:
// pkg/consensus decides that from its priceFeedEnabled setting and the
// height alone. Aspen's migration list is therefore empty: applying it only
// records the marker ApplyDue always writes, which is what the validator
// query tests for.
const AspenName = "aspen"

// builtins maps an upgrade name to its compiled migration list. A new
// upgrade is added here, then declared with its activation height in
// upgrades.yaml.
var builtins = map[string][]Migration{
	AspenName: {},
}
