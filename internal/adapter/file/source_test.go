package file

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memSource(t *testing.T, path, content string) *Source {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	return NewSource(fs, path)
}

func TestLoad_JSONShapes(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
	}{
		{"array", "/data/sections.json", `[{"section": "AB", "averagePricePerM2": 10250.5}, {"section": "AC", "averagePricePerM2": 9800}]`},
		{"data wrapper", "/data/sections.json", `{"data": [{"section": "AB", "averagePricePerM2": 10250.5}, {"section": "AC", "averagePricePerM2": 9800}]}`},
		{"rows wrapper", "/data/sections.json", `{"rows": [{"section": "AB", "averagePricePerM2": 10250.5}, {"section": "AC", "averagePricePerM2": 9800}]}`},
		{"geojson", "/data/sections.geojson", `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "geometry": null, "properties": {"section": "AB", "averagePricePerM2": 10250.5}},
			{"type": "Feature", "geometry": null, "properties": {"section": "AC", "averagePricePerM2": 9800}}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			records, err := memSource(t, tt.path, tt.content).Load(context.Background())
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "AB", records[0]["section"])
			assert.Equal(t, json.Number("10250.5"), records[0]["averagePricePerM2"])
		})
	}
}

func TestLoad_CSV(t *testing.T) {
	t.Parallel()
	src := memSource(t, "/data/sections.csv", "section,postalCode,averagePricePerM2\nAB,75001,10250.5\nAC, 75002 ,\n")

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, map[string]any{"section": "AB", "postalCode": "75001", "averagePricePerM2": "10250.5"}, records[0])
	assert.Equal(t, "75002", records[1]["postalCode"])
	assert.Nil(t, records[1]["averagePricePerM2"])
	assert.Equal(t, "file:sections.csv", src.Name())
}

func TestLoad_CSVSemicolonWithBOM(t *testing.T) {
	t.Parallel()
	src := memSource(t, "/data/dvf.csv", "\xef\xbb\xbfcommune;prix_m2\nParis 1er;12500,5\nParis 2e;11800\n")

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Paris 1er", records[0]["commune"])
	assert.Equal(t, "12500,5", records[0]["prix_m2"])
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := memSource(t, "/data/sections.xlsx", "x").Load(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewSource(afero.NewMemMapFs(), "/data/missing.json").Load(ctx)
	assert.ErrorContains(t, err, "reading /data/missing.json")

	_, err = memSource(t, "/data/empty.json", "  ").Load(ctx)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = memSource(t, "/data/obj.json", `{"meta": {}}`).Load(ctx)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = memSource(t, "/data/broken.json", `[{"a": 1}`).Load(ctx)
	assert.ErrorContains(t, err, "parsing JSON array")

	_, err = memSource(t, "/data/empty.csv", "").Load(ctx)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = memSource(t, "/data/quote.csv", "a,b\n\"unterminated,1\n").Load(ctx)
	assert.ErrorContains(t, err, "reading CSV")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = memSource(t, "/data/sections.csv", "a\n1\n").Load(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
