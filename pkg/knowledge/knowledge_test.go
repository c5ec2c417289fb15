package knowledge

import (
	"slices"
	"testing"

	"github.com/matzehuels/causalorder/pkg/dag/perm"
	"github.com/matzehuels/causalorder/pkg/errors"
)

func TestNilKnowledge(t *testing.T) {
	var k *Knowledge

	if !k.Empty() {
		t.Error("nil knowledge should be empty")
	}
	if k.IsForbidden(0, 1) || k.IsRequired(0, 1) || k.IsExplicitlyForbidden(0, 1) {
		t.Error("nil knowledge should not constrain edges")
	}
	if _, ok := k.Tier(0); ok {
		t.Error("nil knowledge should have no tiers")
	}
	if err := k.Validate(3); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	o := perm.Identity(3)
	if k.Arrange(o) != o {
		t.Error("Arrange on nil knowledge should return the input")
	}
}

func TestIsForbiddenByTiers(t *testing.T) {
	k := New()
	k.SetTier(0, 0, 1)
	k.SetTier(1, 2)
	k.Forbid(2, 3)

	tests := []struct {
		name     string
		from, to int
		want     bool
	}{
		{"later tier into earlier", 2, 0, true},
		{"earlier tier into later", 0, 2, false},
		{"same tier allowed", 0, 1, false},
		{"untiered endpoint", 3, 0, false},
		{"explicit", 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.IsForbidden(tt.from, tt.to); got != tt.want {
				t.Errorf("IsForbidden(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}

	k.ForbidWithinTier(0)
	if !k.IsForbidden(1, 0) || !k.IsForbidden(0, 1) {
		t.Error("ForbidWithinTier should forbid both directions inside the tier")
	}
	if k.IsExplicitlyForbidden(2, 0) {
		t.Error("tier-derived forbids are not explicit")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		build func(k *Knowledge)
		code  errors.Code
	}{
		{"empty", func(k *Knowledge) {}, ""},
		{"consistent", func(k *Knowledge) {
			k.Require(0, 1)
			k.Forbid(1, 0)
			k.SetTier(0, 0)
			k.SetTier(1, 1)
		}, ""},
		{"required and forbidden", func(k *Knowledge) {
			k.Require(0, 1)
			k.Forbid(0, 1)
		}, errors.ErrCodeKnowledgeConflict},
		{"required against tiers", func(k *Knowledge) {
			k.SetTier(0, 0)
			k.SetTier(1, 1)
			k.Require(1, 0)
		}, errors.ErrCodeKnowledgeConflict},
		{"both directions required", func(k *Knowledge) {
			k.Require(0, 1)
			k.Require(1, 0)
		}, errors.ErrCodeKnowledgeConflict},
		{"required cycle", func(k *Knowledge) {
			k.Require(0, 1)
			k.Require(1, 2)
			k.Require(2, 0)
		}, errors.ErrCodeKnowledgeConflict},
		{"cycle through untiered variable", func(k *Knowledge) {
			k.SetTier(0, 1)
			k.SetTier(1, 0)
			k.Require(0, 2)
			k.Require(2, 1)
		}, errors.ErrCodeKnowledgeConflict},
		{"unknown variable", func(k *Knowledge) {
			k.Require(0, 9)
		}, errors.ErrCodeInvalidConfig},
		{"self edge", func(k *Knowledge) {
			k.Forbid(1, 1)
		}, errors.ErrCodeInvalidConfig},
		{"tier on unknown variable", func(k *Knowledge) {
			k.SetTier(0, 7)
		}, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New()
			tt.build(k)
			err := k.Validate(3)
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestAdmissibleAndArrange(t *testing.T) {
	k := New()
	k.Require(3, 0)
	k.SetTier(0, 1)
	k.SetTier(1, 2)

	tests := []struct {
		name       string
		order      []int
		admissible bool
		arranged   []int
	}{
		{"already admissible", []int{3, 0, 2, 1}, true, []int{3, 0, 2, 1}},
		{"required edge reversed", []int{0, 3, 1, 2}, false, []int{3, 0, 1, 2}},
		{"tiers reversed", []int{2, 3, 1, 0}, false, []int{2, 3, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := perm.NewOrder(tt.order)
			if got := k.Admissible(o); got != tt.admissible {
				t.Errorf("Admissible(%v) = %v, want %v", tt.order, got, tt.admissible)
			}
			arranged := k.Arrange(o)
			if got := arranged.Vars(); !slices.Equal(got, tt.arranged) {
				t.Errorf("Arrange(%v) = %v, want %v", tt.order, got, tt.arranged)
			}
			if !k.Admissible(arranged) {
				t.Errorf("Arrange(%v) is not admissible", tt.order)
			}
		})
	}
}

func TestEdgeListsAreSorted(t *testing.T) {
	k := New()
	k.Forbid(2, 0)
	k.Forbid(0, 2)
	k.Forbid(1, 3)
	k.Require(3, 1)
	k.Require(0, 1)

	if got, want := k.Forbidden(), []Edge{{0, 2}, {1, 3}, {2, 0}}; !slices.Equal(got, want) {
		t.Errorf("Forbidden() = %v, want %v", got, want)
	}
	if got, want := k.Required(), []Edge{{0, 1}, {3, 1}}; !slices.Equal(got, want) {
		t.Errorf("Required() = %v, want %v", got, want)
	}
}
