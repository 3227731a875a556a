package domain

import (
	"errors"
	"testing"
)

func TestCategoryRegistryResolve(t *testing.T) {
	reg := NewCategoryRegistry(BuiltinCategories())

	def, err := reg.Resolve("RENT")
	if err != nil {
		t.Fatalf("Resolve(RENT) unexpected error: %v", err)
	}
	if def.DefaultType != TypeNeed {
		t.Errorf("RENT default type = %s, want NEED", def.DefaultType)
	}

	_, err = reg.Resolve("YACHT")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Resolve(YACHT) error = %v, want ErrUnknownCategory", err)
	}

	if got := reg.ResolveOrUncategorized("YACHT"); got.ID != UncategorizedID {
		t.Errorf("ResolveOrUncategorized(YACHT) = %s, want %s", got.ID, UncategorizedID)
	}
}

func TestCategoryRegistryFallback(t *testing.T) {
	other := CategoryDefinition{ID: "OTHER", Name: "Other", DefaultType: TypeWant}
	reg := NewCategoryRegistry(nil).WithFallback(other)

	def, err := reg.Resolve("ANYTHING")
	if err != nil {
		t.Fatalf("Resolve() with fallback unexpected error: %v", err)
	}
	if def.ID != "OTHER" {
		t.Errorf("Resolve() = %s, want fallback OTHER", def.ID)
	}
	if reg.Contains("ANYTHING") {
		t.Error("Contains() should ignore the fallback")
	}
}

func TestCategoryRegistryIgnoresDuplicates(t *testing.T) {
	reg := NewCategoryRegistry([]CategoryDefinition{
		{ID: "RENT", Name: "Rent", DefaultType: TypeNeed},
		{ID: "RENT", Name: "Second", DefaultType: TypeWant},
	})
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	if reg.DefaultType("RENT") != TypeNeed {
		t.Error("first registration should win")
	}
}

func TestCategoryRegistryEffectiveType(t *testing.T) {
	reg := NewCategoryRegistry(BuiltinCategories())

	tests := []struct {
		name     string
		category string
		override ClassificationType
		want     ClassificationType
	}{
		{"registry default", "GROCERIES", "", TypeNeed},
		{"override wins", "GROCERIES", TypeWant, TypeWant},
		{"invalid override ignored", "SAVINGS", "LUXURY", TypeSave},
		{"unknown category degrades", "YACHT", "", TypeWant},
		{"unknown category with override", "YACHT", TypeDebt, TypeDebt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.EffectiveType(tt.category, tt.override); got != tt.want {
				t.Errorf("EffectiveType(%s, %q) = %s, want %s", tt.category, tt.override, got, tt.want)
			}
		})
	}
}

func TestNormalizeCategoryID(t *testing.T) {
	tests := map[string]string{
		"dining out":    "DINING_OUT",
		"  Pet-Care  ":  "PET_CARE",
		"GIFTS":         "GIFTS",
		"kids & school": "KIDS_SCHOOL",
		"!!!":           "",
	}
	for input, want := range tests {
		if got := NormalizeCategoryID(input); got != want {
			t.Errorf("NormalizeCategoryID(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAccountIDFromName(t *testing.T) {
	tests := map[string]string{
		"Main Checking": "main-checking",
		"  BCA -- 01 ":  "bca-01",
		"Savings":       "savings",
	}
	for input, want := range tests {
		if got := AccountIDFromName(input); got != want {
			t.Errorf("AccountIDFromName(%q) = %q, want %q", input, got, want)
		}
	}
}
