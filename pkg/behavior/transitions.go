package behavior

import "github.com/teslashibe/go-hexapod/pkg/pose"

// Params are the step sizes touch input applies.
type Params struct {
	TrimStep       int
	GaitHeightStep float64
}

// Special targets for a Rule.
const (
	stay    Mode = -1
	advance Mode = -2
)

// Rule is one (mode, pattern) entry: an optional state change, then a move
// to To (stay and advance are resolved against the current mode).
type Rule struct {
	To    Mode
	Apply func(s *State, p Params)
}

type modeRules struct {
	on        map[int]Rule
	otherwise *Rule // applies to patterns without an entry
}

var (
	toWalking        = Rule{To: Walking}
	toPreCalibration = Rule{To: PreCalibration}
	toNext           = Rule{To: advance}

	hipBack    = Rule{To: stay, Apply: func(s *State, _ Params) { s.Hip = HipBack }}
	hipForward = Rule{To: stay, Apply: func(s *State, _ Params) { s.Hip = HipForward }}

	// Offline and Dancing share a touch mapping.
	demoRules = modeRules{on: map[int]Rule{
		PatternLeft:  hipBack,
		PatternRight: hipForward,
		PatternNext:  toNext,
		PatternMode:  toPreCalibration,
	}}
)

// transitions is the full touch table.
var transitions = map[Mode]modeRules{
	PreCalibration: {
		on: map[int]Rule{
			PatternMode: {To: Calibration, Apply: func(s *State, _ Params) { s.Calibration.ResetCursor() }},
		},
		otherwise: &toWalking,
	},
	Calibration: {on: map[int]Rule{
		PatternLeft:  {To: stay, Apply: func(s *State, p Params) { s.Calibration.AdjustTrim(-p.TrimStep) }},
		PatternRight: {To: stay, Apply: func(s *State, p Params) { s.Calibration.AdjustTrim(p.TrimStep) }},
		PatternLayer: {To: stay, Apply: func(s *State, _ Params) { s.Calibration.SelectNextLayer() }},
		PatternNext:  {To: stay, Apply: func(s *State, _ Params) { s.Calibration.SelectNextLeg() }},
		PatternMode:  toWalking,
	}},
	Walking: {on: map[int]Rule{
		PatternLeft:  {To: stay, Apply: func(s *State, p Params) { s.Pose.Add(pose.GaitHeight, -p.GaitHeightStep) }},
		PatternRight: {To: stay, Apply: func(s *State, p Params) { s.Pose.Add(pose.GaitHeight, p.GaitHeightStep) }},
		PatternNext:  toNext,
		PatternMode:  toPreCalibration,
	}},
	Offline: demoRules,
	Dancing: demoRules,
	Random: {on: map[int]Rule{
		PatternNext: toNext,
		PatternMode: toPreCalibration,
	}},
}

// Lookup returns the rule for (mode, pattern), if any.
func Lookup(m Mode, pattern int) (Rule, bool) {
	rules, ok := transitions[m]
	if !ok {
		return Rule{}, false
	}
	if r, ok := rules.on[pattern]; ok {
		return r, true
	}
	if rules.otherwise != nil {
		return *rules.otherwise, true
	}
	return Rule{}, false
}

// Transition applies one touch pattern to s and returns the new state.
// Patterns with no rule leave the state unchanged.
func Transition(s State, pattern int, p Params) State {
	r, ok := Lookup(s.Mode, pattern)
	if !ok {
		return s
	}
	if r.Apply != nil {
		r.Apply(&s, p)
	}
	switch r.To {
	case stay:
	case advance:
		s.Mode = s.Mode.Next()
	default:
		s.Mode = r.To
	}
	return s
}
