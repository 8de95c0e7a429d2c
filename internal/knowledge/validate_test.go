package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func leaf(id string) Outline {
	return Outline{ID: id, Name: id, Level: LevelElement}
}

func TestValidate_DefaultCurriculumPasses(t *testing.T) {
	if err := Validate(DefaultCurriculum()); err != nil {
		t.Fatalf("default curriculum validation failed: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		outline Outline
		want    string
	}{
		{
			name:    "root not subject",
			outline: Outline{ID: "s", Level: LevelSection, Children: []Outline{
				{ID: "t", Level: LevelTopic, Children: []Outline{leaf("e")}},
			}},
			want: "must be a subject",
		},
		{
			name:    "duplicate id",
			outline: Outline{ID: "m", Level: LevelSubject, Children: []Outline{
				{ID: "s", Level: LevelSection, Children: []Outline{
					{ID: "t", Level: LevelTopic, Children: []Outline{leaf("e"), leaf("e")}},
				}},
			}},
			want: "duplicate",
		},
		{
			name:    "skipped tier",
			outline: Outline{ID: "m", Level: LevelSubject, Children: []Outline{
				{ID: "t", Level: LevelTopic, Children: []Outline{leaf("e")}},
			}},
			want: "cannot be a child",
		},
		{
			name:    "element with children",
			outline: Outline{ID: "m", Level: LevelSubject, Children: []Outline{
				{ID: "s", Level: LevelSection, Children: []Outline{
					{ID: "t", Level: LevelTopic, Children: []Outline{
						{ID: "e", Level: LevelElement, Children: []Outline{leaf("x")}},
					}},
				}},
			}},
			want: "must not have children",
		},
		{
			name:    "topic without elements",
			outline: Outline{ID: "m", Level: LevelSubject, Children: []Outline{
				{ID: "s", Level: LevelSection, Children: []Outline{
					{ID: "t", Level: LevelTopic},
				}},
			}},
			want: "has no children",
		},
		{
			name:    "negative weight",
			outline: Outline{ID: "m", Level: LevelSubject, Children: []Outline{
				{ID: "s", Level: LevelSection, Children: []Outline{
					{ID: "t", Level: LevelTopic, Children: []Outline{
						{ID: "e", Level: LevelElement, Weight: -1},
					}},
				}},
			}},
			want: "weight",
		},
		{
			name:    "unknown level",
			outline: Outline{ID: "m", Level: LevelSubject, Children: []Outline{
				{ID: "s", Level: "chapter", Children: []Outline{leaf("e")}},
			}},
			want: "unknown level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.outline)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestBuild_RejectsInvalid(t *testing.T) {
	_, err := Build(Outline{ID: "m", Level: LevelSubject})
	if err == nil {
		t.Fatal("expected error for subject without children")
	}
}

const weightedYAML = `
id: sci
name: Science
level: subject
children:
  - id: phys
    name: Physics
    level: section
    children:
      - id: mech
        name: Mechanics
        level: topic
        children:
          - id: forces
            name: Forces
            level: element
            weight: 3
          - id: motion
            name: Motion
            level: element
`

func TestParse_WeightedAggregate(t *testing.T) {
	outline, err := Parse([]byte(weightedYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	g, err := Build(outline)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.UpdateMastery("forces", 80, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.UpdateMastery("motion", 40, 0); err != nil {
		t.Fatal(err)
	}
	mech, _ := g.Node("mech")
	if mech.Mastery != 70 { // (3*80 + 1*40) / 4
		t.Errorf("mech mastery = %d, want 70", mech.Mastery)
	}
	motion, _ := g.Node("motion")
	if motion.Weight != 1 {
		t.Errorf("default weight = %v, want 1", motion.Weight)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("id: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	outline, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if outline.ID != "math" {
		t.Errorf("LoadFile(\"\") root = %q, want math", outline.ID)
	}

	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	if err := os.WriteFile(path, []byte(weightedYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	outline, err = LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if outline.ID != "sci" {
		t.Errorf("root = %q, want sci", outline.ID)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
