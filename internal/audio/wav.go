package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVHeader represents the header structure of a canonical WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Clip holds decoded, normalized audio ready for the speech-to-text engine:
// mono float32 samples in [-1, 1] at the container's original sample rate.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Decode parses an uploaded WAV container into a normalized Clip.
// Mono and stereo 16-bit PCM are accepted; stereo is downmixed to mono.
func Decode(data []byte) (*Clip, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	buf := bytes.NewReader(data)
	var header WAVHeader

	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}

	if header.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	}

	if header.NumChannels != 1 && header.NumChannels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (only mono and stereo are supported)", header.NumChannels)
	}

	if header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	numSamples := int(header.Subchunk2Size) / 2
	if numSamples <= 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	// The header's data size is untrusted input; never allocate past the
	// bytes actually supplied.
	available := (len(data) - 44) / 2
	if numSamples > available {
		return nil, fmt.Errorf("invalid WAV file: data chunk claims %d bytes but only %d are present",
			header.Subchunk2Size, len(data)-44)
	}

	raw := make([]int16, numSamples)
	if err := binary.Read(buf, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("failed to read audio samples: %w", err)
	}

	var samples []float32
	if header.NumChannels == 2 {
		// Downmix interleaved stereo by averaging channel pairs.
		samples = make([]float32, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			mixed := (int32(raw[i]) + int32(raw[i+1])) / 2
			samples = append(samples, float32(mixed)/32768.0)
		}
	} else {
		samples = make([]float32, len(raw))
		for i, s := range raw {
			samples[i] = float32(s) / 32768.0
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(header.SampleRate),
	}, nil
}

// Encode serializes a Clip back into a mono 16-bit PCM WAV container.
// Used when handing normalized audio to the engine as a file.
func Encode(clip *Clip) ([]byte, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio clip")
	}

	if clip.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", clip.SampleRate)
	}

	samples := make([]int16, len(clip.Samples))
	for i, s := range clip.Samples {
		// Clamp before scaling back to int16 range.
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		samples[i] = int16(s * 32767.0)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)
	fileSize := 36 + dataSize

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     fileSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(clip.SampleRate),
		ByteRate:      uint32(clip.SampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// Validate checks a WAV container's framing without decoding the audio data.
func Validate(data []byte) error {
	if len(data) < 44 {
		return fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}
