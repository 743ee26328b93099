package limits

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Source defines how plans are loaded into the limits service.
type Source interface {
	Load(ctx context.Context) (map[PlanID]Plan, error)
}

type inMemSource struct {
	plans map[PlanID]Plan
}

// NewInMemSource returns a Source serving a deep copy of the given plans.
func NewInMemSource(plans map[PlanID]Plan) Source {
	return &inMemSource{plans: clonePlans(plans)}
}

// NewDefaultSource returns a Source serving the built-in plan table.
func NewDefaultSource() Source {
	return &inMemSource{plans: DefaultPlans()}
}

func (s *inMemSource) Load(ctx context.Context) (map[PlanID]Plan, error) {
	return clonePlans(s.plans), nil
}

func clonePlans(plans map[PlanID]Plan) map[PlanID]Plan {
	plansCopy := make(map[PlanID]Plan, len(plans))
	for id, plan := range plans {
		plan.Limits = maps.Clone(plan.Limits)
		plan.Features = slices.Clone(plan.Features)
		plansCopy[id] = plan
	}
	return plansCopy
}

// yamlPlan is the on-disk plan representation for ops overrides.
// A limit of -1 means unlimited, matching the Unlimited sentinel.
type yamlPlan struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Limits      map[string]int64 `yaml:"limits"`
	Features    []string         `yaml:"features"`
	Public      bool             `yaml:"public"`
	PriceID     string           `yaml:"price_id"`
}

type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source that reads the plan table from a YAML
// file. The file is read on every Load; the service loads once at
// construction, so this costs one read at startup.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

func (s *yamlSource) Load(ctx context.Context) (map[PlanID]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var parsed map[string]yamlPlan
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, fmt.Errorf("parse %s: %w", s.path, err))
	}

	plans := make(map[PlanID]Plan, len(parsed))
	for id, yp := range parsed {
		plan := Plan{
			ID:          PlanID(id),
			Name:        yp.Name,
			Description: yp.Description,
			Limits:      make(map[Resource]int64, len(yp.Limits)),
			Features:    make([]Feature, 0, len(yp.Features)),
			Public:      yp.Public,
			PriceID:     yp.PriceID,
		}
		for res, limit := range yp.Limits {
			plan.Limits[Resource(res)] = limit
		}
		for _, f := range yp.Features {
			plan.Features = append(plan.Features, Feature(f))
		}
		plans[PlanID(id)] = plan
	}
	return plans, nil
}
