// internal/game/rules.go
package game

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RuleConfig holds the scoring values and feature toggles of a room. A room copies its
// RuleConfig at creation and never mutates it afterwards; a restart resets scores, not rules.
type RuleConfig struct {
	SingleOne  int    `json:"singleOne" yaml:"singleOne"`
	SingleFive int    `json:"singleFive" yaml:"singleFive"`
	Triples    [7]int `json:"triples" yaml:"triples"` // indexed by face, [0] unused

	FourKindMultiplier int `json:"fourKindMultiplier" yaml:"fourKindMultiplier"`
	FiveKindMultiplier int `json:"fiveKindMultiplier" yaml:"fiveKindMultiplier"`
	SixKindMultiplier  int `json:"sixKindMultiplier" yaml:"sixKindMultiplier"`

	SixOfAKind   int `json:"sixOfAKind" yaml:"sixOfAKind"`
	Straight     int `json:"straight" yaml:"straight"`
	ThreePairs   int `json:"threePairs" yaml:"threePairs"`
	TwoTriplets  int `json:"twoTriplets" yaml:"twoTriplets"`
	FourStraight int `json:"fourStraight" yaml:"fourStraight"`
	FiveStraight int `json:"fiveStraight" yaml:"fiveStraight"`
	SixOnes      int `json:"sixOnes" yaml:"sixOnes"`

	EnableThreePairs  bool `json:"enableThreePairs" yaml:"enableThreePairs"`
	EnableTwoTriplets bool `json:"enableTwoTriplets" yaml:"enableTwoTriplets"`
	Enable4Straight   bool `json:"enable4Straight" yaml:"enable4Straight"`
	Enable5Straight   bool `json:"enable5Straight" yaml:"enable5Straight"`
	ToxicTwos         bool `json:"toxicTwos" yaml:"toxicTwos"`
	WelfareMode       bool `json:"welfareMode" yaml:"welfareMode"`
	HighStakes        bool `json:"highStakes" yaml:"highStakes"`
	SixOnesInstantWin bool `json:"sixOnesInstantWin" yaml:"sixOnesInstantWin"` // carried for clients; no transition reads it
	NoFarkleFirstRoll bool `json:"noFarkleFirstRoll" yaml:"noFarkleFirstRoll"`
	HotDiceBonus      bool `json:"hotDiceBonus" yaml:"hotDiceBonus"`

	OpeningScore        int `json:"openingScore" yaml:"openingScore"`
	WinScore            int `json:"winScore" yaml:"winScore"`
	ThreeFarklesPenalty int `json:"threeFarklesPenalty" yaml:"threeFarklesPenalty"`

	HotDiceBonusPoints    int `json:"hotDiceBonusPoints" yaml:"hotDiceBonusPoints"`
	HighStakesBonusPoints int `json:"highStakesBonusPoints" yaml:"highStakesBonusPoints"`
	WelfareThreshold      int `json:"welfareThreshold" yaml:"welfareThreshold"`

	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}

// DefaultRules returns the classic rule set every room definition starts from.
func DefaultRules() RuleConfig {
	return RuleConfig{
		SingleOne:  100,
		SingleFive: 50,
		Triples:    [7]int{0, 1000, 200, 300, 400, 500, 600},

		FourKindMultiplier: 2,
		FiveKindMultiplier: 4,
		SixKindMultiplier:  8,

		SixOfAKind:   3000,
		Straight:     1500,
		ThreePairs:   1500,
		TwoTriplets:  2500,
		FourStraight: 500,
		FiveStraight: 1200,
		SixOnes:      5000,

		OpeningScore:        0,
		WinScore:            10000,
		ThreeFarklesPenalty: 1000,

		HotDiceBonusPoints:    1000,
		HighStakesBonusPoints: 1000,
		WelfareThreshold:      10000,

		NoFarkleFirstRoll: true,

		Category: "casual",
	}
}

// singleValue returns the points a lone die of the given face is worth.
func (r RuleConfig) singleValue(face int) int {
	switch face {
	case 1:
		return r.SingleOne
	case 5:
		return r.SingleFive
	}
	return 0
}

// penalty returns the three-farkle penalty, falling back to 1000 when unset.
func (r RuleConfig) penalty() int {
	if r.ThreeFarklesPenalty > 0 {
		return r.ThreeFarklesPenalty
	}
	return 1000
}

// winTarget returns the win score, falling back to 10000 when unset.
func (r RuleConfig) winTarget() int {
	if r.WinScore > 0 {
		return r.WinScore
	}
	return 10000
}

var summaryPrinter = message.NewPrinter(language.English)

// Summary returns the human-readable rules description shown in the lobby. An explicit
// Description wins; otherwise one is built from the enabled variants.
func (r RuleConfig) Summary() string {
	if r.Description != "" {
		return r.Description
	}

	var variants []string
	if r.EnableThreePairs {
		variants = append(variants, "3 Pairs")
	}
	if r.EnableTwoTriplets {
		variants = append(variants, "2 Triplets")
	}
	if r.Enable4Straight || r.Enable5Straight {
		variants = append(variants, "4/5-Run")
	}
	if r.ToxicTwos {
		variants = append(variants, "Toxic Twos")
	}
	if r.WelfareMode {
		variants = append(variants, "Welfare")
	}
	if r.HighStakes {
		variants = append(variants, "High Stakes")
	}

	label := "Classic Rules"
	if r.Category == "speed" {
		label = "Speed Run"
	}
	if len(variants) > 0 {
		label = "House Variants: " + strings.Join(variants, " • ")
	}
	return summaryPrinter.Sprintf("%s • %d Pts", label, r.winTarget())
}
