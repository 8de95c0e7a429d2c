package knowledge

import (
	"fmt"
	"strings"
)

// Validate checks a curriculum tree for structural errors. All problems are
// collected and reported together.
func Validate(outline Outline) error {
	return validateOutline(outline)
}

func validateOutline(outline Outline) error {
	var errs []string

	if outline.Level != LevelSubject {
		errs = append(errs, fmt.Sprintf("root %q must be a %s, got %q", outline.ID, LevelSubject, outline.Level))
	}

	seen := make(map[string]bool)
	var check func(s Outline, parent *Outline)
	check = func(s Outline, parent *Outline) {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("node with empty ID under %q", parentID(parent)))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate node ID: %q", s.ID))
		}
		seen[s.ID] = true

		if !s.Level.Valid() {
			errs = append(errs, fmt.Sprintf("node %q has unknown level %q", s.ID, s.Level))
		} else if parent != nil && parent.Level.Valid() && s.Level.Depth() != parent.Level.Depth()+1 {
			errs = append(errs, fmt.Sprintf("node %q (%s) cannot be a child of %q (%s)", s.ID, s.Level, parent.ID, parent.Level))
		}

		if s.Weight < 0 {
			errs = append(errs, fmt.Sprintf("node %q: weight must be >= 0, got %g", s.ID, s.Weight))
		}

		switch {
		case s.Level == LevelElement && len(s.Children) > 0:
			errs = append(errs, fmt.Sprintf("element %q must not have children", s.ID))
		case s.Level.Valid() && s.Level != LevelElement && len(s.Children) == 0:
			errs = append(errs, fmt.Sprintf("%s %q has no children", s.Level, s.ID))
		}

		for i := range s.Children {
			check(s.Children[i], &s)
		}
	}
	check(outline, nil)

	if len(errs) > 0 {
		return fmt.Errorf("knowledge graph validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func parentID(p *Outline) string {
	if p == nil {
		return ""
	}
	return p.ID
}
