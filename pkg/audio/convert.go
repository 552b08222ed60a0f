// Package audio provides the small PCM toolbox used by the transcription
// pipeline and the capture contract: sample-rate conversion, channel
// downmixing, float32 normalisation, and frame energy measurement.
//
// All functions operate on raw little-endian signed 16-bit PCM unless noted
// otherwise. They are pure and safe for concurrent use.
package audio

import (
	"encoding/binary"
	"math"
)

// Resample16 linearly resamples mono 16-bit PCM from srcRate to dstRate.
// Returns the input unchanged when the rates match or the input is too short
// to interpolate. A trailing odd byte is ignored.
func Resample16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(binary.LittleEndian.Uint16(pcm[srcIdx*2 : srcIdx*2+2]))
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(srcIdx+1)*2 : (srcIdx+1)*2+2]))
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(interpolated))
	}
	return out
}

// Downmix16 averages interleaved multi-channel 16-bit PCM into mono.
// channels ≤ 1 returns the input unchanged. Trailing bytes that do not form
// a complete frame are dropped.
func Downmix16(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / (2 * channels)
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[idx : idx+2])))
		}
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(sum/channels)))
	}
	return out
}

// ToFloat32 converts mono 16-bit PCM to float32 samples normalised to
// [-1.0, 1.0]. A trailing odd byte is silently ignored.
func ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// RMS returns the root-mean-square energy of a mono 16-bit PCM frame,
// normalised to [0, 1]. An empty or sub-sample frame has zero energy.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:i*2+2]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Int16sToBytes packs int16 samples into little-endian PCM bytes.
func Int16sToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}
