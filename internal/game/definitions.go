// internal/game/definitions.go
package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RoomDefinition names a room and the rules it is created with.
type RoomDefinition struct {
	Code  string
	Rules RuleConfig
}

// DefaultRoomDefinitions returns the built-in room list in lobby order.
func DefaultRoomDefinitions() []RoomDefinition {
	speed := DefaultRules()
	speed.WinScore = 6000
	speed.OpeningScore = 500
	speed.Category = "speed"
	speed.Description = "Speed Run • 6,000 Pts"

	classic := DefaultRules()
	classic.OpeningScore = 500
	classic.Description = "Classic Rules • 10,000 Pts"

	house1 := DefaultRules()
	house1.EnableThreePairs = true
	house1.ThreePairs = 750
	house1.Enable4Straight = true
	house1.FourStraight = 500
	house1.Enable5Straight = true
	house1.FiveStraight = 1200
	house1.Description = "House Variants: 3 Pairs • 4/5-Run"

	house2 := DefaultRules()
	house2.EnableThreePairs = true
	house2.ThreePairs = 750
	house2.Enable4Straight = true
	house2.Enable5Straight = true
	house2.FiveStraight = 1200
	house2.Description = "House Variants: 3 Pairs • 4/5-Run"

	highStakes := DefaultRules()
	highStakes.HighStakes = true
	highStakes.Description = "High Stakes: Vote w/ Dice"

	return []RoomDefinition{
		{Code: "Speed 1", Rules: speed},
		{Code: "Speed 2", Rules: speed},
		{Code: "Classic 1", Rules: classic},
		{Code: "Classic 2", Rules: classic},
		{Code: "Classic 3", Rules: classic},
		{Code: "House 1", Rules: house1},
		{Code: "House 2", Rules: house2},
		{Code: "House 3 (High Stakes)", Rules: highStakes},
	}
}

type roomFile struct {
	Rooms []struct {
		Code  string    `yaml:"code"`
		Rules yaml.Node `yaml:"rules"`
	} `yaml:"rooms"`
}

// ParseRoomDefinitions decodes a YAML room list. Each room's rules are decoded over
// DefaultRules, so a definition only lists what it changes.
func ParseRoomDefinitions(data []byte) ([]RoomDefinition, error) {
	var f roomFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing room definitions: %w", err)
	}
	if len(f.Rooms) == 0 {
		return nil, fmt.Errorf("room definitions: no rooms defined")
	}

	seen := make(map[string]bool, len(f.Rooms))
	defs := make([]RoomDefinition, 0, len(f.Rooms))
	for i, raw := range f.Rooms {
		if raw.Code == "" {
			return nil, fmt.Errorf("room definitions: room %d has no code", i)
		}
		if seen[raw.Code] {
			return nil, fmt.Errorf("room definitions: duplicate room %q", raw.Code)
		}
		seen[raw.Code] = true

		rules := DefaultRules()
		if !raw.Rules.IsZero() {
			if err := raw.Rules.Decode(&rules); err != nil {
				return nil, fmt.Errorf("room %q rules: %w", raw.Code, err)
			}
		}
		defs = append(defs, RoomDefinition{Code: raw.Code, Rules: rules})
	}
	return defs, nil
}

// LoadRoomDefinitions reads a YAML room list from path.
func LoadRoomDefinitions(path string) ([]RoomDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading room definitions %s: %w", path, err)
	}
	return ParseRoomDefinitions(data)
}
