package lifecycle

import (
	"testing"

	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/pkg/types"
)

func TestEffectiveTerminalStatesStick(t *testing.T) {
	if got := Effective(types.LifecycleRetired, 100, 0); got != types.LifecycleRetired {
		t.Fatalf("retired must stay retired, got %s", got)
	}
	if got := Effective(types.LifecycleInvalidated, 100, 0); got != types.LifecycleInvalidated {
		t.Fatalf("invalidated must stay invalidated, got %s", got)
	}
}

func TestEffectiveHealthBands(t *testing.T) {
	cases := []struct {
		health int
		want   types.Lifecycle
	}{
		{0, types.LifecycleAtRisk},
		{64, types.LifecycleAtRisk},
		{65, types.LifecycleUnderReview},
		{84, types.LifecycleUnderReview},
		{85, types.LifecycleStable},
		{100, types.LifecycleStable},
	}
	for _, tc := range cases {
		if got := Effective(types.LifecycleStable, tc.health, 0); got != tc.want {
			t.Fatalf("health %d: expected %s, got %s", tc.health, tc.want, got)
		}
	}
}

func TestEffectiveConflictsCapAtUnderReview(t *testing.T) {
	if got := Effective(types.LifecycleStable, 90, 1); got != types.LifecycleUnderReview {
		t.Fatalf("open conflict must cap below STABLE, got %s", got)
	}
	if got := Effective(types.LifecycleStable, 60, 2); got != types.LifecycleAtRisk {
		t.Fatalf("low health with conflicts is AT_RISK, got %s", got)
	}
	for health := 0; health <= 100; health++ {
		if Effective(types.LifecycleStable, health, 1) == types.LifecycleStable {
			t.Fatalf("health %d: decision with open conflict presented STABLE", health)
		}
	}
}

func TestValidateRetirement(t *testing.T) {
	d := types.Decision{ID: "dec-1", Lifecycle: types.LifecycleAtRisk}

	err := ValidateRetirement(d, "exploded", types.RetirementConclusions{})
	if errcode.CodeOf(err) != errcode.CodeValidation {
		t.Fatalf("unknown outcome must fail validation, got %v", err)
	}

	err = ValidateRetirement(d, types.OutcomeFailed, types.RetirementConclusions{WhyOutcome: "missed market"})
	if errcode.CodeOf(err) != errcode.CodeValidation {
		t.Fatalf("failed retirement without reasons must fail, got %v", err)
	}

	err = ValidateRetirement(d, types.OutcomeFailed, types.RetirementConclusions{
		WhyOutcome:     "missed market",
		FailureReasons: []string{"competitor shipped first"},
	})
	if err != nil {
		t.Fatalf("complete failed retirement should validate: %v", err)
	}

	err = ValidateRetirement(types.Decision{ID: "dec-2", Lifecycle: types.LifecycleRetired}, types.OutcomeSucceeded, types.RetirementConclusions{})
	if errcode.CodeOf(err) != errcode.CodeRetired {
		t.Fatalf("double retirement must be rejected, got %v", err)
	}
}

func TestCheckReviewable(t *testing.T) {
	if err := CheckReviewable(types.Decision{ID: "d", Lifecycle: types.LifecycleStable}); err != nil {
		t.Fatalf("stable decision should be reviewable: %v", err)
	}
	err := CheckReviewable(types.Decision{ID: "d", Lifecycle: types.LifecycleRetired})
	if errcode.CodeOf(err) != errcode.CodeRetired {
		t.Fatalf("expected RETIRED, got %v", err)
	}
}
