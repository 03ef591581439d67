package policy

// Set is the fully resolved policy bundle an engine runs with: core
// defaults merged against whatever partial overrides the loaded
// strategy bundle declared.
type Set struct {
	Cost   CostPolicy   `json:"cost" yaml:"cost"`
	Risk   RiskPolicy   `json:"risk" yaml:"risk"`
	Sizing SizingPolicy `json:"sizing" yaml:"sizing"`
}

// Overrides is the parsed form of a strategy bundle's policy_overrides
// block. Each field is independently optional: a bundle may override
// only risk, only cost, all three, or none.
type Overrides struct {
	Cost   *CostOverride   `json:"cost,omitempty" yaml:"cost,omitempty"`
	Risk   *RiskOverride   `json:"risk,omitempty" yaml:"risk,omitempty"`
	Sizing *SizingOverride `json:"sizing,omitempty" yaml:"sizing,omitempty"`
}

// Default returns the core's built-in policy set before any bundle
// override is applied.
func Default() Set {
	return Set{
		Cost:   DefaultCostPolicy(),
		Risk:   DefaultRiskPolicy(),
		Sizing: DefaultSizingPolicy(),
	}
}

// Merge composes defaults with a strategy bundle's overrides. A nil
// Overrides returns defaults unchanged; each policy dimension merges
// independently so a bundle overriding only risk still inherits the
// core's cost and sizing defaults verbatim.
func Merge(defaults Set, overrides *Overrides) Set {
	if overrides == nil {
		return defaults
	}

	return Set{
		Cost:   MergeCostOverride(defaults.Cost, overrides.Cost),
		Risk:   MergeRiskOverride(defaults.Risk, overrides.Risk),
		Sizing: MergeSizingOverride(defaults.Sizing, overrides.Sizing),
	}
}
