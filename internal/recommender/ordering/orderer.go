// Package ordering sequences a finished recommendation list into a
// listenable arc: an energy curve rather than a confidence-sorted dump.
package ordering

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/observability"
)

const stageName = "playlist_orderer"

const (
	energyBatchSize    = 8
	energyBatchTimeout = 45 * time.Second
)

// ArcStrategy names the energy-curve shape the LLM (or heuristic fallback)
// selects for the finished playlist.
type ArcStrategy string

const (
	ArcClassicBuild           ArcStrategy = "classic_build"
	ArcImmediateImpact        ArcStrategy = "immediate_impact"
	ArcChillJourney           ArcStrategy = "chill_journey"
	ArcEmotionalRollercoaster ArcStrategy = "emotional_rollercoaster"
	ArcSustainedEnergy        ArcStrategy = "sustained_energy"
	ArcAmbientFlow            ArcStrategy = "ambient_flow"
)

// Phase names one of the six fixed positions a track can occupy in the
// finished running order.
type Phase string

const (
	PhaseOpening Phase = "opening"
	PhaseBuild   Phase = "build"
	PhaseMid     Phase = "mid"
	PhaseHigh    Phase = "high"
	PhaseDescent Phase = "descent"
	PhaseClosure Phase = "closure"
)

// allPhases fixes the canonical phase order tracks are assembled in.
var allPhases = []Phase{PhaseOpening, PhaseBuild, PhaseMid, PhaseHigh, PhaseDescent, PhaseClosure}

// arcEnergyProfile gives each arc's target energy level per phase, in
// allPhases order. These come from the six arc descriptions: classic_build
// rises to a late peak then eases off, immediate_impact opens hot and
// fades, chill_journey stays low throughout, emotional_rollercoaster swings
// between highs and lows, sustained_energy holds a high plateau, and
// ambient_flow stays near-flat and quiet.
var arcEnergyProfile = map[ArcStrategy][6]float64{
	ArcClassicBuild:           {0.25, 0.45, 0.60, 0.85, 0.50, 0.25},
	ArcImmediateImpact:        {0.80, 0.75, 0.80, 0.85, 0.55, 0.40},
	ArcChillJourney:           {0.30, 0.40, 0.45, 0.35, 0.30, 0.20},
	ArcEmotionalRollercoaster: {0.50, 0.80, 0.30, 0.85, 0.40, 0.55},
	ArcSustainedEnergy:        {0.80, 0.85, 0.85, 0.90, 0.80, 0.75},
	ArcAmbientFlow:            {0.20, 0.20, 0.25, 0.20, 0.20, 0.15},
}

// arcPhaseWeights gives each arc's fallback share of the total track count
// per phase, in allPhases order, used when no LLM phase_distribution is
// available. chill_journey and ambient_flow skip the high phase entirely,
// matching their flatter curves.
var arcPhaseWeights = map[ArcStrategy][6]float64{
	ArcClassicBuild:           {0.10, 0.20, 0.28, 0.25, 0.12, 0.05},
	ArcImmediateImpact:        {0.25, 0.20, 0.25, 0.20, 0.07, 0.03},
	ArcChillJourney:           {0.15, 0.20, 0.30, 0.00, 0.20, 0.15},
	ArcEmotionalRollercoaster: {0.12, 0.22, 0.16, 0.24, 0.16, 0.10},
	ArcSustainedEnergy:        {0.08, 0.18, 0.24, 0.30, 0.14, 0.06},
	ArcAmbientFlow:            {0.15, 0.00, 0.70, 0.00, 0.00, 0.15},
}

// trackAnalysis is the per-track energy profile estimated by the LLM (or
// the fallback heuristic), used both to rank candidates for a phase and to
// order tracks smoothly within their assigned phase.
type trackAnalysis struct {
	EnergyLevel        float64
	Momentum           float64
	EmotionalIntensity float64
	OpeningPotential   float64
	ClosingPotential   float64
	PeakPotential      float64
}

// Orderer sequences tracks into an arc-shaped final order.
type Orderer struct {
	provider llm.Provider
	model    string
	trace    *observability.Trace
}

// New builds an Orderer. A nil provider falls back to ordering purely by
// each track's own audio-feature energy value and a heuristically chosen
// arc.
func New(provider llm.Provider, model string, trace *observability.Trace) *Orderer {
	return &Orderer{provider: provider, model: model, trace: trace}
}

// Order returns recs resequenced into an arc shaped by six named phases
// (opening, build, mid, high, descent, closure) whose track counts sum to
// len(recs). It never fails outright: an LLM error or unparseable response
// falls back to the energy-feature heuristic.
func (o *Orderer) Order(ctx context.Context, sessionID string, recs []models.TrackRecommendation) []models.TrackRecommendation {
	if len(recs) == 0 {
		return recs
	}

	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	analyses := o.analyzeTracks(ctx, sessionID, recs)
	arc, distribution := o.selectStrategy(ctx, sessionID, recs, analyses)
	phases := assignPhases(recs, analyses, arc, distribution)

	ordered := make([]models.TrackRecommendation, 0, len(recs))
	for _, phase := range allPhases {
		tracks := orderPhaseTracks(phases[phase], analyses)
		tracks = centerUserMentioned(tracks)
		for i := range tracks {
			tracks[i].Phase = string(phase)
		}
		ordered = append(ordered, tracks...)
	}

	logger.LogStageCompletion(stageName, time.Since(start), len(ordered), fields)
	return ordered
}

// analyzeTracks seeds every track with a heuristic energy profile derived
// from its own audio features, then overwrites entries with the LLM's
// batched per-track analysis where available. Batches of 8 keep each
// request small enough to stay well inside its own 45s timeout.
func (o *Orderer) analyzeTracks(ctx context.Context, sessionID string, recs []models.TrackRecommendation) map[string]trackAnalysis {
	analyses := make(map[string]trackAnalysis, len(recs))
	for _, r := range recs {
		analyses[r.TrackID] = fallbackAnalysis(r)
	}
	if o.provider == nil {
		return analyses
	}

	for start := 0; start < len(recs); start += energyBatchSize {
		end := start + energyBatchSize
		if end > len(recs) {
			end = len(recs)
		}
		batchCtx, cancel := context.WithTimeout(ctx, energyBatchTimeout)
		result := o.analyzeBatch(batchCtx, sessionID, recs[start:end])
		cancel()
		for id, a := range result {
			analyses[id] = a
		}
	}
	return analyses
}

func fallbackAnalysis(r models.TrackRecommendation) trackAnalysis {
	energy := 0.5
	if r.AudioFeatures.Energy != nil {
		energy = *r.AudioFeatures.Energy
	}
	return trackAnalysis{
		EnergyLevel:        energy,
		Momentum:           energy,
		EmotionalIntensity: energy,
		OpeningPotential:   1 - energy,
		ClosingPotential:   1 - energy,
		PeakPotential:      energy,
	}
}

type trackEnergyPayload struct {
	Tracks []struct {
		TrackID            string  `json:"track_id"`
		EnergyLevel        float64 `json:"energy_level"`
		Momentum           float64 `json:"momentum"`
		EmotionalIntensity float64 `json:"emotional_intensity"`
		OpeningPotential   float64 `json:"opening_potential"`
		ClosingPotential   float64 `json:"closing_potential"`
		PeakPotential      float64 `json:"peak_potential"`
	} `json:"tracks"`
}

// analyzeBatch returns nil on any LLM or parse failure, leaving the
// caller's fallback seed values for this batch untouched.
func (o *Orderer) analyzeBatch(ctx context.Context, sessionID string, batch []models.TrackRecommendation) map[string]trackAnalysis {
	fields := logger.WithSession(sessionID, stageName)
	var lines []string
	for _, r := range batch {
		lines = append(lines, fmt.Sprintf("%s: %s by %s", r.TrackID, r.TrackName, strings.Join(r.Artists, ", ")))
	}

	request := &llm.GenerationRequest{
		Model:        o.model,
		SystemPrompt: trackEnergySystemPrompt,
		InputArray: []map[string]any{
			{"role": "user", "content": strings.Join(lines, "\n")},
		},
		OutputSchema: &llm.OutputSchema{
			Name:        "track_energy",
			Description: "per-track energy and mood-arc potential analysis",
			Schema:      llm.GetTrackEnergySchema(),
		},
	}

	var generation *observability.Generation
	if o.trace != nil {
		generation = o.trace.Span(stageName+".energy", nil)
	}

	resp, err := o.provider.Generate(ctx, request)
	if err != nil {
		logger.Warn("llm track energy estimation failed for batch", fields)
		return nil
	}
	if generation != nil {
		generation.LogInvocation(resp.Model, request.InputArray, resp.RawOutput, resp.Usage, nil)
		generation.Finish()
	}

	var payload trackEnergyPayload
	if err := llm.ExtractJSON(resp.RawOutput, &payload); err != nil {
		logger.Warn("could not parse llm track energy response for batch", fields)
		return nil
	}

	out := make(map[string]trackAnalysis, len(payload.Tracks))
	for _, t := range payload.Tracks {
		out[t.TrackID] = trackAnalysis{
			EnergyLevel:        t.EnergyLevel,
			Momentum:           t.Momentum,
			EmotionalIntensity: t.EmotionalIntensity,
			OpeningPotential:   t.OpeningPotential,
			ClosingPotential:   t.ClosingPotential,
			PeakPotential:      t.PeakPotential,
		}
	}
	return out
}

type arcStrategyPayload struct {
	Strategy          string         `json:"strategy"`
	PhaseDistribution map[string]int `json:"phase_distribution"`
	Reasoning         string         `json:"reasoning"`
}

// selectStrategy picks the arc and a per-phase track count that sums to
// len(recs), the invariant the final assembly in Order depends on.
func (o *Orderer) selectStrategy(ctx context.Context, sessionID string, recs []models.TrackRecommendation, analyses map[string]trackAnalysis) (ArcStrategy, map[Phase]int) {
	avg, min, max := energyStats(analyses)
	fallbackArc := fallbackArcStrategy(avg, max-min)

	if o.provider == nil {
		return fallbackArc, allocatePhaseDistribution(len(recs), arcPhaseWeights[fallbackArc])
	}

	userMentioned := 0
	for _, r := range recs {
		if r.IsLocked() {
			userMentioned++
		}
	}

	fields := logger.WithSession(sessionID, stageName)
	request := &llm.GenerationRequest{
		Model:        o.model,
		SystemPrompt: orderingStrategySystemPrompt,
		InputArray: []map[string]any{
			{"role": "user", "content": fmt.Sprintf(
				"%d tracks. avg_energy=%.2f min_energy=%.2f max_energy=%.2f user_mentioned_tracks=%d",
				len(recs), avg, min, max, userMentioned,
			)},
		},
		OutputSchema: &llm.OutputSchema{
			Name:        "ordering_strategy",
			Description: "arc and phase distribution selection for final playlist ordering",
			Schema:      llm.GetOrderingStrategySchema(),
		},
	}

	var generation *observability.Generation
	if o.trace != nil {
		generation = o.trace.Span(stageName+".arc", nil)
	}

	resp, err := o.provider.Generate(ctx, request)
	if err != nil {
		logger.Warn("llm arc strategy selection failed", fields)
		return fallbackArc, allocatePhaseDistribution(len(recs), arcPhaseWeights[fallbackArc])
	}
	if generation != nil {
		generation.LogInvocation(resp.Model, request.InputArray, resp.RawOutput, resp.Usage, nil)
		generation.Finish()
	}

	var payload arcStrategyPayload
	if err := llm.ExtractJSON(resp.RawOutput, &payload); err != nil {
		logger.Warn("could not parse llm arc strategy response", fields)
		return fallbackArc, allocatePhaseDistribution(len(recs), arcPhaseWeights[fallbackArc])
	}

	arc := ArcStrategy(payload.Strategy)
	if _, ok := arcPhaseWeights[arc]; !ok {
		arc = fallbackArc
	}

	distribution := normalizePhaseDistribution(payload.PhaseDistribution, len(recs))
	if distribution == nil {
		distribution = allocatePhaseDistribution(len(recs), arcPhaseWeights[arc])
	}
	return arc, distribution
}

// fallbackArcStrategy picks an arc from the aggregate energy stats alone,
// used whenever the LLM path is unavailable or its response is unusable.
func fallbackArcStrategy(avgEnergy, energyRange float64) ArcStrategy {
	switch {
	case avgEnergy >= 0.75 && energyRange < 0.25:
		return ArcSustainedEnergy
	case avgEnergy <= 0.35 && energyRange < 0.25:
		return ArcAmbientFlow
	case avgEnergy <= 0.45:
		return ArcChillJourney
	case energyRange >= 0.5:
		return ArcEmotionalRollercoaster
	case avgEnergy >= 0.65:
		return ArcImmediateImpact
	default:
		return ArcClassicBuild
	}
}

func energyStats(analyses map[string]trackAnalysis) (avg, min, max float64) {
	if len(analyses) == 0 {
		return 0.5, 0.5, 0.5
	}
	min = math.MaxFloat64
	max = -math.MaxFloat64
	sum := 0.0
	for _, a := range analyses {
		sum += a.EnergyLevel
		if a.EnergyLevel < min {
			min = a.EnergyLevel
		}
		if a.EnergyLevel > max {
			max = a.EnergyLevel
		}
	}
	return sum / float64(len(analyses)), min, max
}

// normalizePhaseDistribution validates that raw names all six phases with
// non-negative counts summing to total, returning nil otherwise so the
// caller falls back to a computed distribution.
func normalizePhaseDistribution(raw map[string]int, total int) map[Phase]int {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[Phase]int, len(allPhases))
	sum := 0
	for _, p := range allPhases {
		v, ok := raw[string(p)]
		if !ok || v < 0 {
			return nil
		}
		out[p] = v
		sum += v
	}
	if sum != total {
		return nil
	}
	return out
}

// allocatePhaseDistribution splits total across allPhases by weight using
// largest-remainder rounding, which guarantees the counts sum to exactly
// total even when the weighted shares don't divide evenly.
func allocatePhaseDistribution(total int, weights [6]float64) map[Phase]int {
	counts := make(map[Phase]int, len(allPhases))
	if total <= 0 {
		for _, p := range allPhases {
			counts[p] = 0
		}
		return counts
	}

	raw := make([]float64, len(allPhases))
	floorSum := 0
	for i, w := range weights {
		raw[i] = w * float64(total)
		counts[allPhases[i]] = int(math.Floor(raw[i]))
		floorSum += counts[allPhases[i]]
	}

	type remainder struct {
		idx  int
		frac float64
	}
	remainders := make([]remainder, len(allPhases))
	for i := range raw {
		remainders[i] = remainder{idx: i, frac: raw[i] - math.Floor(raw[i])}
	}
	sort.SliceStable(remainders, func(i, j int) bool { return remainders[i].frac > remainders[j].frac })

	for i := 0; i < total-floorSum; i++ {
		counts[allPhases[remainders[i].idx]]++
	}
	return counts
}

// assignPhases greedily fills each phase, in allPhases order, with the
// distribution's count of tracks whose analysis best fits that phase,
// leaving the rest for later phases. Because the distribution sums to
// len(recs), the pool is always fully consumed.
func assignPhases(recs []models.TrackRecommendation, analyses map[string]trackAnalysis, arc ArcStrategy, distribution map[Phase]int) map[Phase][]models.TrackRecommendation {
	profile := arcEnergyProfile[arc]
	pool := make([]models.TrackRecommendation, len(recs))
	copy(pool, recs)

	result := make(map[Phase][]models.TrackRecommendation, len(allPhases))
	for i, phase := range allPhases {
		target := profile[i]
		n := distribution[phase]
		if n > len(pool) {
			n = len(pool)
		}

		sort.SliceStable(pool, func(a, b int) bool {
			return phaseAffinity(analyses[pool[a].TrackID], phase, target) > phaseAffinity(analyses[pool[b].TrackID], phase, target)
		})

		result[phase] = append(result[phase], pool[:n]...)
		pool = pool[n:]
	}

	if len(pool) > 0 {
		result[PhaseMid] = append(result[PhaseMid], pool...)
	}
	return result
}

// phaseAffinity scores how well a track fits a phase: closeness to that
// phase's target energy, plus a bonus from the potential field the phase
// most cares about.
func phaseAffinity(a trackAnalysis, phase Phase, target float64) float64 {
	score := -math.Abs(a.EnergyLevel - target)
	switch phase {
	case PhaseOpening:
		score += 0.3 * a.OpeningPotential
	case PhaseClosure:
		score += 0.3 * a.ClosingPotential
	case PhaseHigh:
		score += 0.3 * a.PeakPotential
	}
	return score
}

// orderPhaseTracks sequences a phase's tracks by a greedy nearest-neighbor
// walk that minimizes the transition cost (energy, BPM, key distance)
// between consecutive tracks.
func orderPhaseTracks(tracks []models.TrackRecommendation, analyses map[string]trackAnalysis) []models.TrackRecommendation {
	if len(tracks) <= 1 {
		return tracks
	}

	remaining := make([]models.TrackRecommendation, len(tracks))
	copy(remaining, tracks)

	ordered := []models.TrackRecommendation{remaining[0]}
	remaining = remaining[1:]

	for len(remaining) > 0 {
		last := ordered[len(ordered)-1]
		bestIdx, bestCost := 0, math.MaxFloat64
		for i, t := range remaining {
			cost := transitionCost(last, t, analyses)
			if cost < bestCost {
				bestCost, bestIdx = cost, i
			}
		}
		ordered = append(ordered, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return ordered
}

func transitionCost(a, b models.TrackRecommendation, analyses map[string]trackAnalysis) float64 {
	cost := math.Abs(analyses[a.TrackID].EnergyLevel - analyses[b.TrackID].EnergyLevel)
	if a.AudioFeatures.Tempo != nil && b.AudioFeatures.Tempo != nil {
		cost += math.Abs(*a.AudioFeatures.Tempo-*b.AudioFeatures.Tempo) / 200.0
	}
	if a.AudioFeatures.Key != nil && b.AudioFeatures.Key != nil {
		cost += keyDistance(*a.AudioFeatures.Key, *b.AudioFeatures.Key) / 12.0
	}
	return cost
}

// keyDistance is the shorter arc distance between two pitch classes on the
// 12-tone circle of keys.
func keyDistance(a, b int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return float64(d)
}

// centerUserMentioned keeps every track's phase but moves user-mentioned
// or protected tracks into the middle of that phase's running order.
func centerUserMentioned(ordered []models.TrackRecommendation) []models.TrackRecommendation {
	var locked, rest []models.TrackRecommendation
	for _, t := range ordered {
		if t.IsLocked() {
			locked = append(locked, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(locked) == 0 {
		return ordered
	}

	mid := len(rest) / 2
	out := make([]models.TrackRecommendation, 0, len(ordered))
	out = append(out, rest[:mid]...)
	out = append(out, locked...)
	out = append(out, rest[mid:]...)
	return out
}

const trackEnergySystemPrompt = "Analyze each track's perceived energy and its role in a mood arc. " +
	"For every track return energy_level, momentum, emotional_intensity, opening_potential, " +
	"closing_potential, and peak_potential, each on a 0-1 scale."

const orderingStrategySystemPrompt = "Choose the energy-arc strategy that best fits this playlist: " +
	"classic_build, immediate_impact, chill_journey, emotional_rollercoaster, sustained_energy, or " +
	"ambient_flow. Assign a phase_distribution across exactly the six phases opening, build, mid, " +
	"high, descent, and closure, with counts summing to the total track count."
