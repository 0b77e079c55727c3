package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/primdiff/internal/primitive"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/box_steady_state.yaml")
	require.NoError(t, err)

	assert.Equal(t, "box_steady_state", s.Name)
	assert.Equal(t, "test-session-0001", s.Session)
	require.Len(t, s.Frames, 5)
	assert.Equal(t, int32(0xff0000), s.Frames[0].Primitives[1].Material)
	assert.Equal(t, "reconnect", s.Frames[4].Reset)
	require.NotNil(t, s.Frames[3].Expect)
	assert.Equal(t, "UNKNOWN_TYPE", s.Frames[3].Expect.Error)
	require.NotNil(t, s.Final)
	assert.Equal(t, 1, s.Final.Types["SPHERE"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "empty",
			yaml: "",
			want: "empty scenario",
		},
		{
			name: "missing name",
			yaml: "frames:\n  - raw: \"\"\n",
			want: "schema",
		},
		{
			name: "no frames",
			yaml: "name: x\nframes: []\n",
			want: "schema",
		},
		{
			name: "unknown field",
			yaml: "name: x\nframes:\n  - raw: \"00\"\n    bogus: 1\n",
			want: "schema",
		},
		{
			name: "material out of range",
			yaml: "name: x\nframes:\n  - primitives:\n      - {type: BOX, material: 4294967296, payload: [0,0,0,0,0,0,1,1,1]}\n",
			want: "schema",
		},
		{
			name: "odd hex",
			yaml: "name: x\nframes:\n  - raw: \"abc\"\n",
			want: "schema",
		},
		{
			name: "bad error code",
			yaml: "name: x\nframes:\n  - raw: \"00\"\n    expect: {error: BROKEN}\n",
			want: "schema",
		},
		{
			name: "unknown type",
			yaml: "name: x\nframes:\n  - primitives:\n      - {type: CONE, material: 1, payload: [1]}\n",
			want: `unknown primitive type "CONE"`,
		},
		{
			name: "short payload",
			yaml: "name: x\nframes:\n  - primitives:\n      - {type: SPHERE, material: 1, payload: [1, 2]}\n",
			want: "SPHERE payload has 2 elements, want 4",
		},
		{
			name: "raw and primitives",
			yaml: "name: x\nframes:\n  - raw: \"00\"\n    primitives:\n      - {type: SPHERE, material: 1, payload: [1, 2, 3, 4]}\n",
			want: "mutually exclusive",
		},
		{
			name: "rejected frame with additions",
			yaml: "name: x\nframes:\n  - raw: \"00\"\n    expect: {error: TRUNCATED, added: 1}\n",
			want: "cannot add or remove",
		},
		{
			name: "unknown final type",
			yaml: "name: x\nframes:\n  - raw: \"\"\nfinal:\n  types: {CONE: 1}\n",
			want: `final.types: unknown primitive type "CONE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_LowercaseTypeName(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\nframes:\n  - primitives:\n      - {type: sphere, material: 1, payload: [1, 2, 3, 4]}\n"))
	require.NoError(t, err)

	buf, err := s.Encode(primitive.Default(), 0)
	require.NoError(t, err)
	assert.Len(t, buf, 24)
	assert.Equal(t, []byte{0, 0, 0, 3, 0, 0, 0, 1}, buf[:8])
}

func TestScenario_EncodeAll(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/truncated_frame.yaml")
	require.NoError(t, err)

	frames, err := s.EncodeAll(primitive.Default())
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Len(t, frames[0], 24)
	assert.Len(t, frames[1], 29)
	assert.Equal(t, frames[0], frames[2])
	// The raw frame starts with the same sphere the first frame sends.
	assert.Equal(t, frames[0], frames[1][:24])
}

func TestScenario_EmptyFrame(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/mixed_types.yaml")
	require.NoError(t, err)

	buf, err := s.Encode(primitive.Default(), 2)
	require.NoError(t, err)
	assert.Empty(t, buf)
}

func TestLoadScenario_AllTestdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
