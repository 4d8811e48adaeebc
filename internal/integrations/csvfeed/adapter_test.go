package csvfeed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"loadplan/internal/model"
)

func TestParseDemandFile(t *testing.T) {
	in := strings.NewReader(
		"store,zone,pallets,productType,window,cluster\n" +
			"S100,dry,12,grocery,,north\n" +
			"S200, Chilled ,4.5,dairy,06:00-10:00,north\n" +
			"S300,frozen,2,,,\n")
	got, err := parse(in)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, "S100", got[0].Store)
	require.Equal(t, model.ZoneAmbient, got[0].Zone)
	require.Equal(t, 12.0, got[0].Pallets)
	require.Equal(t, "grocery", got[0].ProductType)
	require.Equal(t, "north", got[0].Cluster)

	require.Equal(t, model.ZoneChiller, got[1].Zone)
	require.Equal(t, 4.5, got[1].Pallets)
	require.Equal(t, "06:00-10:00", got[1].Window)

	require.Equal(t, model.ZoneFreezer, got[2].Zone)
}

func TestParseRejectsMissingColumn(t *testing.T) {
	_, err := parse(strings.NewReader("store,pallets\nS100,5\n"))
	require.ErrorContains(t, err, `missing column "zone"`)
}

func TestParseRejectsBadLines(t *testing.T) {
	_, err := parse(strings.NewReader("store,zone,pallets\nS100,dry,lots\n"))
	require.ErrorContains(t, err, "line 2: pallets")

	_, err = parse(strings.NewReader("store,zone,pallets\nS100,dry,5\nS200,lukewarm,3\n"))
	require.ErrorContains(t, err, `line 3: unknown zone "lukewarm"`)
}

func TestFetchReadsPlanDateFile(t *testing.T) {
	dir := t.TempDir()
	body := "store,zone,pallets\nS100,produce,6\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-09-01.csv"), []byte(body), 0o644))

	a := New(dir)
	require.Equal(t, "csv-feed", a.Name())

	got, err := a.Fetch("2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, model.ZoneProduce, got[0].Zone)

	_, err = a.Fetch("2026-09-02")
	require.ErrorContains(t, err, "csvfeed: open")
}
