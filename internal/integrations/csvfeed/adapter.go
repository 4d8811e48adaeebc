package csvfeed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"loadplan/internal/model"
)

// Adapter reads shipment demand from CSV drops, one file per plan date.
// Expected header: store,zone,pallets,productType,window,cluster. Trailing
// columns are optional.
type Adapter struct {
	Dir string
}

func New(dir string) *Adapter { return &Adapter{Dir: dir} }

func (a *Adapter) Name() string { return "csv-feed" }

func (a *Adapter) Fetch(planDate string) ([]model.Shipment, error) {
	path := filepath.Join(a.Dir, planDate+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvfeed: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) ([]model.Shipment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csvfeed: read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"store", "zone", "pallets"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csvfeed: missing column %q", required)
		}
	}

	out := []model.Shipment{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csvfeed: line %d: %w", line, err)
		}
		pallets, err := strconv.ParseFloat(strings.TrimSpace(field(rec, col, "pallets")), 64)
		if err != nil {
			return nil, fmt.Errorf("csvfeed: line %d: pallets: %w", line, err)
		}
		zone, err := parseZone(field(rec, col, "zone"))
		if err != nil {
			return nil, fmt.Errorf("csvfeed: line %d: %w", line, err)
		}
		out = append(out, model.Shipment{
			Store:       strings.TrimSpace(field(rec, col, "store")),
			Zone:        zone,
			Pallets:     pallets,
			ProductType: strings.TrimSpace(field(rec, col, "producttype")),
			Window:      strings.TrimSpace(field(rec, col, "window")),
			Cluster:     strings.TrimSpace(field(rec, col, "cluster")),
		})
	}
	return out, nil
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseZone(s string) (model.TempZone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ambient", "dry":
		return model.ZoneAmbient, nil
	case "chiller", "chilled", "cooler":
		return model.ZoneChiller, nil
	case "freezer", "frozen":
		return model.ZoneFreezer, nil
	case "produce":
		return model.ZoneProduce, nil
	}
	return "", fmt.Errorf("unknown zone %q", s)
}
