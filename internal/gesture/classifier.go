// Package gesture turns per-frame hand landmarks into discrete gesture labels.
//
// Static poses (thumbs up, victory) are read from a single frame. The wave is
// dynamic: it is read from the recent wrist trajectory of a hand slot.
package gesture

import (
	"image"
	"math"

	"github.com/ayusman/pryvit/internal/detector"
)

// Label is a recognized gesture.
type Label string

const (
	// None means no gesture was recognized.
	None Label = ""
	// Wave is an open hand oscillating side to side or up and down.
	Wave Label = "wave"
	// ThumbsUp is a raised thumb with the other fingers curled.
	ThumbsUp Label = "thumbs_up"
	// Victory is index and middle fingers raised, ring and pinky curled.
	Victory Label = "victory"
)

// String returns the label, or "none" for None.
func (l Label) String() string {
	if l == None {
		return "none"
	}
	return string(l)
}

// Params tunes the wave detector. Zero values fall back to DefaultParams.
type Params struct {
	HistorySize  int     // samples kept per slot
	MinSamples   int     // samples needed before a wave can fire
	NoiseFloor   float64 // steps not larger than this are not counted as moves
	MinMoves     int     // surviving steps needed per axis
	MinReversals int     // direction changes needed per axis
	MinAmplitude float64 // max-min of the axis must exceed this
	MinMeanStep  float64 // mean step over all samples must exceed this
	OpenFingers  int     // extended non-thumb fingers for an open hand
}

// DefaultParams returns the stock wave detector settings.
func DefaultParams() Params {
	return Params{
		HistorySize:  DefaultHistorySize,
		MinSamples:   10,
		NoiseFloor:   0.004,
		MinMoves:     5,
		MinReversals: 2,
		MinAmplitude: 0.05,
		MinMeanStep:  0.01,
		OpenFingers:  3,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.HistorySize <= 0 {
		p.HistorySize = d.HistorySize
	}
	if p.MinSamples <= 0 {
		p.MinSamples = d.MinSamples
	}
	if p.NoiseFloor <= 0 {
		p.NoiseFloor = d.NoiseFloor
	}
	if p.MinMoves <= 0 {
		p.MinMoves = d.MinMoves
	}
	if p.MinReversals <= 0 {
		p.MinReversals = d.MinReversals
	}
	if p.MinAmplitude <= 0 {
		p.MinAmplitude = d.MinAmplitude
	}
	if p.MinMeanStep <= 0 {
		p.MinMeanStep = d.MinMeanStep
	}
	if p.OpenFingers <= 0 {
		p.OpenFingers = d.OpenFingers
	}
	return p
}

// Detection is the classification of one hand in one frame.
type Detection struct {
	Slot  int
	Label Label
	BBox  image.Rectangle
}

// Classifier labels hands frame by frame. It keeps per-slot wrist history,
// so a single Classifier must be fed from one frame loop.
type Classifier struct {
	params    Params
	history   *History
	lastCount int
}

// NewClassifier creates a Classifier with the given parameters.
func NewClassifier(params Params) *Classifier {
	params = params.withDefaults()
	return &Classifier{
		params:  params,
		history: NewHistory(params.HistorySize),
	}
}

// History exposes the per-slot wrist history.
func (c *Classifier) History() *History {
	return c.history
}

// Classify labels every hand in the frame. It returns one Detection per
// hand, in input order; hands without a gesture carry None.
func (c *Classifier) Classify(hands []detector.Hand) []Detection {
	if len(hands) == 0 {
		c.history.Reset()
		c.lastCount = 0
		return nil
	}

	// Slots are positional, so a change in hand count can renumber the
	// survivors. Drop everything rather than merge two trajectories.
	if len(hands) != c.lastCount {
		c.history.Reset()
	}
	c.lastCount = len(hands)

	present := make(map[int]bool, len(hands))
	for i := range hands {
		present[hands[i].Slot] = true
	}
	c.history.Retain(present)

	detections := make([]Detection, 0, len(hands))
	for i := range hands {
		hand := &hands[i]
		detections = append(detections, Detection{
			Slot:  hand.Slot,
			Label: c.classifyHand(hand),
			BBox:  hand.BBox,
		})
	}
	return detections
}

func (c *Classifier) classifyHand(hand *detector.Hand) Label {
	label := StaticPose(hand)

	x, y := hand.WristPosition()
	c.history.Add(hand.Slot, Sample{X: x, Y: y})

	if IsOpen(hand, c.params.OpenFingers) && c.isWaving(hand.Slot) {
		c.history.Clear(hand.Slot)
		return Wave
	}

	return label
}

func (c *Classifier) isWaving(slot int) bool {
	if c.history.Len(slot) < c.params.MinSamples {
		return false
	}

	samples := c.history.Samples(slot)
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.X
		ys[i] = s.Y
	}

	return c.axisWaving(xs) || c.axisWaving(ys)
}

// axisWaving reports whether one coordinate series oscillates enough to
// count as a wave.
func (c *Classifier) axisWaving(values []float64) bool {
	stats := MeasureAxis(values, c.params.NoiseFloor)
	if stats.Moves < c.params.MinMoves {
		return false
	}
	return stats.Reversals >= c.params.MinReversals &&
		stats.Amplitude > c.params.MinAmplitude &&
		stats.MeanStep > c.params.MinMeanStep
}

// AxisStats summarizes the motion along one axis.
type AxisStats struct {
	Moves     int     // steps above the noise floor
	Reversals int     // sign changes between consecutive surviving steps
	Amplitude float64 // max - min of the raw values
	MeanStep  float64 // mean magnitude of every step, jitter included
}

// MeasureAxis computes AxisStats for a series. Steps whose magnitude does
// not exceed noiseFloor are left out of Moves and Reversals but still
// count toward MeanStep.
func MeasureAxis(values []float64, noiseFloor float64) AxisStats {
	var stats AxisStats
	if len(values) == 0 {
		return stats
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	stats.Amplitude = hi - lo

	var prev, sum float64
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		sum += math.Abs(d)
		if math.Abs(d) <= noiseFloor {
			continue
		}
		if stats.Moves > 0 && (d > 0) != (prev > 0) {
			stats.Reversals++
		}
		prev = d
		stats.Moves++
	}

	if n := len(values) - 1; n > 0 {
		stats.MeanStep = sum / float64(n)
	}
	return stats
}

// StaticPose checks the static poses, most specific first.
func StaticPose(hand *detector.Hand) Label {
	p := &hand.Points

	if isThumbsUp(p) {
		return ThumbsUp
	}
	if isVictory(p) {
		return Victory
	}
	return None
}

// above reports whether landmark a is higher in the frame than b.
func above(p *[detector.NumLandmarks]detector.Point3D, a, b int) bool {
	return p[a].Y < p[b].Y
}

func isThumbsUp(p *[detector.NumLandmarks]detector.Point3D) bool {
	if !above(p, detector.ThumbTip, detector.ThumbIP) || !above(p, detector.ThumbIP, detector.Wrist) {
		return false
	}

	// Every other fingertip curled below the joint two landmarks down its chain
	for _, tip := range []int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip} {
		if !above(p, tip-2, tip) {
			return false
		}
	}
	return true
}

func isVictory(p *[detector.NumLandmarks]detector.Point3D) bool {
	return above(p, detector.IndexTip, detector.IndexPIP) &&
		above(p, detector.MiddleTip, detector.MiddlePIP) &&
		above(p, detector.RingPIP, detector.RingTip) &&
		above(p, detector.PinkyPIP, detector.PinkyTip)
}

// ExtendedFingers counts the non-thumb fingers whose tip is above its PIP
// joint.
func ExtendedFingers(hand *detector.Hand) int {
	p := &hand.Points
	n := 0
	for _, f := range [][2]int{
		{detector.IndexTip, detector.IndexPIP},
		{detector.MiddleTip, detector.MiddlePIP},
		{detector.RingTip, detector.RingPIP},
		{detector.PinkyTip, detector.PinkyPIP},
	} {
		if above(p, f[0], f[1]) {
			n++
		}
	}
	return n
}

// IsOpen reports whether at least minFingers non-thumb fingers are extended.
func IsOpen(hand *detector.Hand, minFingers int) bool {
	return ExtendedFingers(hand) >= minFingers
}
