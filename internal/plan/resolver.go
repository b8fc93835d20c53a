package plan

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Feature is one gated capability in the plan table.
type Feature struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	MinTier Tier   `yaml:"min_tier"`
}

// Decision is the result of a gating check.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	RequiredTier Tier   `json:"required_tier,omitempty"`
	Message      string `json:"message"`
}

// Table resolves feature gating decisions. Immutable after construction, so
// the same (featureID, tier) pair always yields the same decision within one
// loaded table.
type Table struct {
	features map[string]Feature
}

// Default returns the compiled-in plan table mirroring Wenpai's plan pages.
func Default() *Table {
	return newTable([]Feature{
		{ID: "adapt.basic", Name: "内容适配", MinTier: TierTrial},
		{ID: "adapt.batch", Name: "批量适配", MinTier: TierPro},
		{ID: "adapt.scheduled", Name: "定时发布", MinTier: TierPro},
		{ID: "ai.chat", Name: "AI 对话", MinTier: TierTrial},
		{ID: "ai.model.premium", Name: "高级模型", MinTier: TierPremium},
		{ID: "emoji.generator", Name: "表情包生成", MinTier: TierPro},
		{ID: "brand.library", Name: "品牌库", MinTier: TierPremium},
		{ID: "analytics", Name: "数据分析", MinTier: TierPremium},
	})
}

// LoadFile reads a plan table from YAML, replacing the defaults entirely.
func LoadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan table %s: %w", path, err)
	}
	var doc struct {
		Features []Feature `yaml:"features"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse plan table %s: %w", path, err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("plan table %s has no features", path)
	}
	return newTable(doc.Features), nil
}

func newTable(features []Feature) *Table {
	m := make(map[string]Feature, len(features))
	for _, f := range features {
		if _, ok := tierRank[f.MinTier]; !ok {
			f.MinTier = TierTrial
		}
		m[f.ID] = f
	}
	return &Table{features: m}
}

// Check resolves whether tier may use featureID. Unknown features are
// denied so a typo gates closed rather than open.
func (t *Table) Check(featureID string, tier Tier) Decision {
	f, ok := t.features[featureID]
	if !ok {
		return Decision{
			Allowed: false,
			Message: fmt.Sprintf("unknown feature %q", featureID),
		}
	}
	if tier.AtLeast(f.MinTier) {
		return Decision{Allowed: true, Message: "ok"}
	}
	return Decision{
		Allowed:      false,
		RequiredTier: f.MinTier,
		Message:      fmt.Sprintf("%s requires the %s plan", f.Name, f.MinTier),
	}
}

// Features lists the table's features sorted by ID, for the admin CLI.
func (t *Table) Features() []Feature {
	out := make([]Feature, 0, len(t.features))
	for _, f := range t.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
