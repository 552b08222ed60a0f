package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"layeh.com/gopus"
)

// Opus-framed recordings use 48 kHz audio at 20 ms packet granularity, the
// rate browsers and most telephony stacks emit.
const (
	OpusSampleRate = 48000
	opusFrameMs    = 20
	// opusFrameSize is the per-channel sample count of one 20 ms packet.
	opusFrameSize = OpusSampleRate * opusFrameMs / 1000 // 960
)

// ErrOpusFraming is returned when a length-prefixed opus stream is truncated
// or carries a packet longer than the remaining data.
var ErrOpusFraming = errors.New("audio: malformed opus packet framing")

// SplitOpusPackets parses a length-prefixed opus stream into individual
// packets. Each packet is preceded by a big-endian uint16 byte length.
// An empty input yields no packets.
func SplitOpusPackets(data []byte) ([][]byte, error) {
	var packets [][]byte
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, ErrOpusFraming
		}
		n := int(binary.BigEndian.Uint16(data[:2]))
		data = data[2:]
		if n == 0 || n > len(data) {
			return nil, ErrOpusFraming
		}
		packets = append(packets, data[:n])
		data = data[n:]
	}
	return packets, nil
}

// OpusDecoder decodes a stream of opus packets from one recording into
// interleaved 16-bit PCM. Decoder state carries across packets, so a single
// OpusDecoder must only be used for one recording and one goroutine.
type OpusDecoder struct {
	dec      *gopus.Decoder
	channels int
}

// NewOpusDecoder creates a decoder for channels-channel opus audio at
// [OpusSampleRate].
func NewOpusDecoder(channels int) (*OpusDecoder, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("audio: unsupported opus channel count %d", channels)
	}
	dec, err := gopus.NewDecoder(OpusSampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec, channels: channels}, nil
}

// Decode decodes a single opus packet and returns its PCM bytes.
func (d *OpusDecoder) Decode(packet []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(packet, opusFrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("audio: opus decode: %w", err)
	}
	return Int16sToBytes(pcm), nil
}

// DecodeAll splits a length-prefixed opus stream and decodes every packet,
// concatenating the PCM output.
func (d *OpusDecoder) DecodeAll(data []byte) ([]byte, error) {
	packets, err := SplitOpusPackets(data)
	if err != nil {
		return nil, err
	}
	var pcm []byte
	for _, p := range packets {
		chunk, err := d.Decode(p)
		if err != nil {
			return nil, err
		}
		pcm = append(pcm, chunk...)
	}
	return pcm, nil
}
