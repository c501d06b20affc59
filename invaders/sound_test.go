package invaders

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

func readMixer(t *testing.T, m *mixer, n int) []float32 {
	t.Helper()
	p := make([]byte, n*4)
	got, err := m.Read(p)
	if err != nil || got != len(p) {
		t.Fatalf("Read = %d, %v; want %d, nil", got, err, len(p))
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	return out
}

func equalSamples(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-6 {
			return false
		}
	}
	return true
}

func TestMixer(t *testing.T) {
	m := newMixer()
	m.gain = 1
	m.samples[Shot] = []float32{0.5, 0.25}
	m.samples[UFO] = []float32{0.1, 0.2, 0.3}

	if got, want := readMixer(t, m, 3), []float32{0, 0, 0}; !equalSamples(got, want) {
		t.Errorf("idle: got %v, want %v", got, want)
	}

	m.Play(Shot)
	if got, want := readMixer(t, m, 4), []float32{0.5, 0.25, 0, 0}; !equalSamples(got, want) {
		t.Errorf("play: got %v, want %v", got, want)
	}

	m.Loop(UFO)
	m.Play(Shot)
	if got, want := readMixer(t, m, 5), []float32{0.6, 0.45, 0.3, 0.1, 0.2}; !equalSamples(got, want) {
		t.Errorf("loop: got %v, want %v", got, want)
	}
	m.Stop(UFO)
	if got, want := readMixer(t, m, 2), []float32{0, 0}; !equalSamples(got, want) {
		t.Errorf("stop: got %v, want %v", got, want)
	}

	// Sounds without samples are ignored.
	m.Play(Fleet1)
	if m.voices[Fleet1].active {
		t.Error("voice started without a sample")
	}
}

func TestMixerClamp(t *testing.T) {
	m := newMixer()
	m.gain = 1
	m.samples[Shot] = []float32{0.8, -0.8}
	m.samples[InvaderDie] = []float32{0.8, -0.8}
	m.Play(Shot)
	m.Play(InvaderDie)
	if got, want := readMixer(t, m, 2), []float32{1, -1}; !equalSamples(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	for _, c := range []struct {
		name  string
		data  []float32
		chans int
		depth int
		want  []float32
	}{
		{"8-bit mono", []float32{0, 128, 192}, 1, 8, []float32{-1, 0, 0.5}},
		{"16-bit mono", []float32{-32768, 0, 16384}, 1, 16, []float32{-1, 0, 0.5}},
		{"16-bit stereo", []float32{16384, -1, -16384, 1}, 2, 16, []float32{0.5, -0.5}},
	} {
		if got := normalize(c.data, c.chans, c.depth); !equalSamples(got, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestResample(t *testing.T) {
	for _, c := range []struct {
		data     []float32
		from, to int
		want     []float32
	}{
		{[]float32{0, 1}, 1, 2, []float32{0, 0.5, 1, 1}},
		{[]float32{0, 1, 2, 3}, 2, 1, []float32{0, 2}},
		{[]float32{0, 1}, 44100, 44100, []float32{0, 1}},
		{nil, 1, 2, nil},
	} {
		if got := resample(c.data, c.from, c.to); !equalSamples(got, c.want) {
			t.Errorf("resample(%v, %d, %d) = %v, want %v", c.data, c.from, c.to, got, c.want)
		}
	}
}

func writeWAV(t *testing.T, path string, rate int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSample(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "shoot.wav"), SampleRate, []int{0, 16384, -16384, 32767})

	got, err := loadSample(dir, "shoot")
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768}
	if !equalSamples(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := loadSample(dir, "ufo"); !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("missing sample: got %v, want not-exist error", err)
	}
}

func TestLoadSampleResamples(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "ufo.wav"), SampleRate/2, make([]int, 100))
	got, err := loadSample(dir, "ufo")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 200 {
		t.Errorf("got %d samples, want 200", len(got))
	}
}
