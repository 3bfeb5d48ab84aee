package analyzers

import (
	"context"
	"fmt"
	"math"

	"meetingintel/internal/audio"
	"meetingintel/internal/report"
	"meetingintel/internal/stage"
)

// minSeparation is the relative distance between the two ZCR centroids below
// which every region is attributed to one speaker.
const minSeparation = 0.35

// energyDiarizer segments voiced regions by energy and attributes them to
// speakers by clustering their zero-crossing rates.
type energyDiarizer struct {
	minGap    float64
	threshold float64
}

func newEnergyDiarizer(deps Deps) (stage.Analyzer, error) {
	d := energyDiarizer{minGap: deps.Diarization.MinGapSeconds, threshold: deps.Diarization.SilenceThreshold}
	if d.minGap <= 0 {
		d.minGap = 1.5
	}
	if d.threshold <= 0 {
		d.threshold = audio.SilenceFloor
	}
	return d, nil
}

type region struct {
	start, end float64
	zcr        float64
	frames     int
}

func (d energyDiarizer) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	if err := canceled(ctx, "energy diarizer"); err != nil {
		return nil, err
	}
	regions := d.regions(in.Audio)
	out := report.Speakers{Segments: make([]report.SpeakerSegment, 0, len(regions))}
	if len(regions) == 0 {
		return out, nil
	}

	zcrs := make([]float64, len(regions))
	for i, r := range regions {
		zcrs[i] = r.zcr
	}
	assign, separation := twoMeans(zcrs)
	labels := map[int]string{assign[0]: "SPEAKER_00"}
	for i, r := range regions {
		label, ok := labels[assign[i]]
		if !ok {
			label = fmt.Sprintf("SPEAKER_%02d", len(labels))
			labels[assign[i]] = label
		}
		out.Segments = append(out.Segments, report.SpeakerSegment{Speaker: label, Start: r.start, End: r.end})
	}
	out.SpeakerCount = len(labels)
	confidence := 0.6
	if out.SpeakerCount > 1 {
		confidence = clamp01(0.5 + separation/2)
	}
	out.ConfidenceScore = report.Confidence(math.Round(confidence*1000) / 1000)
	return out, nil
}

// regions groups voiced frames, bridging silences shorter than minGap.
func (d energyDiarizer) regions(h *audio.Handle) []region {
	frame := audio.FrameDuration.Seconds()
	duration := h.Seconds()
	var out []region
	var current *region
	var zcrSum float64
	closeRegion := func() {
		if current != nil {
			current.zcr = zcrSum / float64(current.frames)
			out = append(out, *current)
			current = nil
		}
	}
	for _, f := range h.Envelope() {
		if !f.Voiced(d.threshold) {
			continue
		}
		start := f.Start.Seconds()
		end := min(start+frame, duration)
		if current != nil && start-current.end >= d.minGap {
			closeRegion()
		}
		if current == nil {
			current = &region{start: start}
			zcrSum = 0
		}
		current.end = end
		current.frames++
		zcrSum += f.ZCR
	}
	closeRegion()
	return out
}

// twoMeans splits values into two clusters. It returns the cluster of each
// value and the relative separation of the centroids; when the separation is
// below minSeparation every value lands in cluster 0.
func twoMeans(values []float64) ([]int, float64) {
	assign := make([]int, len(values))
	if len(values) < 2 {
		return assign, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	c := [2]float64{lo, hi}
	for range 20 {
		var sum [2]float64
		var n [2]int
		for i, v := range values {
			k := 0
			if math.Abs(v-c[1]) < math.Abs(v-c[0]) {
				k = 1
			}
			assign[i] = k
			sum[k] += v
			n[k]++
		}
		next := c
		for k := range 2 {
			if n[k] > 0 {
				next[k] = sum[k] / float64(n[k])
			}
		}
		if next == c {
			break
		}
		c = next
	}
	top := max(c[0], c[1])
	if top == 0 {
		return make([]int, len(values)), 0
	}
	separation := math.Abs(c[1]-c[0]) / top
	if separation < minSeparation {
		return make([]int, len(values)), separation
	}
	return assign, separation
}
