package location

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fridge/internal/fridge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint(" 52.52, 13.405 ")
	require.NoError(t, err)
	assert.Equal(t, fridge.Point{Lat: 52.52, Lon: 13.405}, p)

	for _, bad := range []string{"", "52.5", "x,1", "1,y", "91,0", "0,181"} {
		_, err := ParsePoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestFileProvider(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "where")
	f := File{Path: path}

	_, ok, err := f.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("1,2\n52.52,13.405\n"), 0o644))
	p, ok, err := f.Current(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 52.52, p.Lat)

	require.NoError(t, os.WriteFile(path, []byte("nonsense\n"), 0o644))
	_, _, err = f.Current(ctx)
	assert.Error(t, err)
}

func TestStaticAndNone(t *testing.T) {
	_, ok, _ := None{}.Current(context.Background())
	assert.False(t, ok)
	p, ok, _ := Static{Point: fridge.Point{Lat: 1, Lon: 2}}.Current(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 2.0, p.Lon)
}
