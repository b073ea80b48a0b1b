package audio

import "math"

// applyGain scales interleaved signed 16-bit little-endian PCM in place,
// clipping at the sample range.
func applyGain(pcm []byte, gain float64) {
	if gain == 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		v := math.Round(float64(s) * gain)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out := uint16(int16(v))
		pcm[i] = byte(out)
		pcm[i+1] = byte(out >> 8)
	}
}
