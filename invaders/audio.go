package invaders

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"
)

// SampleRate is the output rate of a SampleSpeaker.
const SampleRate = 44100

// SampleSpeaker plays recorded samples of the cabinet's sounds.
type SampleSpeaker struct {
	*mixer

	ctx    *oto.Context
	player *oto.Player
}

// NewSampleSpeaker loads a sample for each Sound from dir and opens the
// host's audio device. Samples are named after the sound, as in "ufo.wav"
// or "shoot.mp3"; missing samples are logged and stay silent.
func NewSampleSpeaker(dir string) (*SampleSpeaker, error) {
	m := newMixer()
	found := 0
	for s := Sound(0); s < numSounds; s++ {
		data, err := loadSample(dir, s.String())
		if os.IsNotExist(errors.Cause(err)) {
			log.Printf("audio: no sample for %v", s)
			continue
		}
		if err != nil {
			return nil, err
		}
		m.samples[s] = data
		found++
	}
	if found == 0 {
		return nil, errors.Errorf("no sound samples in %s", dir)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening audio device")
	}
	<-ready

	sp := &SampleSpeaker{mixer: m, ctx: ctx}
	sp.player = ctx.NewPlayer(m)
	sp.player.Play()
	return sp, nil
}

// Close stops playback.
func (sp *SampleSpeaker) Close() error {
	return sp.player.Close()
}

// loadSample reads name.wav, or failing that name.mp3, from dir and returns
// it as mono samples in [-1, 1] at SampleRate.
func loadSample(dir, name string) ([]float32, error) {
	base := filepath.Join(dir, name)
	f, err := os.Open(base + ".wav")
	if os.IsNotExist(err) {
		f, err = os.Open(base + ".mp3")
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", name)
		}
		defer f.Close()
		data, rate, err := decodeMP3(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s.mp3", base)
		}
		return resample(data, rate, SampleRate), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", name)
	}
	defer f.Close()
	data, rate, err := decodeWAV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s.wav", base)
	}
	return resample(data, rate, SampleRate), nil
}

// decodeWAV returns the first channel of a PCM wav file, normalised.
func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	chans, depth := int(dec.NumChans), int(dec.BitDepth)
	if chans < 1 || depth < 8 || depth > 32 {
		return nil, 0, errors.Errorf("unsupported format: %d channels, %d bits", chans, depth)
	}
	fb := buf.AsFloat32Buffer()
	out := normalize(fb.Data, chans, depth)
	return out, int(dec.SampleRate), nil
}

// normalize returns the first channel of interleaved integer PCM data
// scaled to [-1, 1].
func normalize(data []float32, chans, depth int) []float32 {
	var (
		scale = float32(int(1) << (depth - 1))
		bias  float32
	)
	if depth == 8 {
		// 8-bit wav samples are unsigned.
		bias = 128
	}
	out := make([]float32, 0, len(data)/chans)
	for i := 0; i < len(data); i += chans {
		out = append(out, (data[i]-bias)/scale)
	}
	return out
}

// decodeMP3 returns the left channel of an mp3 stream, normalised.
// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.Reader) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	out := make([]float32, 0, len(pcm)/4)
	for i := 0; i+1 < len(pcm); i += 4 {
		v := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		out = append(out, float32(v)/32768)
	}
	return out, dec.SampleRate(), nil
}

// resample converts data from one sample rate to another by linear
// interpolation.
func resample(data []float32, from, to int) []float32 {
	if from == to || from <= 0 || len(data) == 0 {
		return data
	}
	n := int(int64(len(data)) * int64(to) / int64(from))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		frac := float32(pos - float64(j))
		a := data[j]
		b := a
		if j+1 < len(data) {
			b = data[j+1]
		}
		out[i] = a + (b-a)*frac
	}
	return out
}
