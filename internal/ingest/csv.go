package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
)

// numericColumns are the optional columns the parser understands.
// Anything else in the source is ignored; nothing is synthesized for
// columns the source does not carry.
var numericColumns = []string{
	contracts.ColPopulation,
	contracts.ColTotalCases,
	contracts.ColNewCases,
	contracts.ColTotalDeaths,
	contracts.ColNewDeaths,
	contracts.ColTotalVaccinations,
	contracts.ColPeopleVaccinated,
	contracts.ColPeopleFullyVaccinated,
	contracts.ColNewVaccinations,
	contracts.ColStringencyIndex,
}

// ParseFile reads an OWID CSV file into a dataset.
func ParseFile(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

// Parse reads OWID CSV data. The header row decides which columns
// exist in the resulting dataset; empty cells become missing values.
func Parse(r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	for _, col := range []string{contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("identity column %s missing from header", col)
		}
	}

	columns := dataset.NewColumnSet(contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate)
	for _, col := range numericColumns {
		if _, ok := index[col]; ok {
			columns.Add(col)
		}
	}

	var rows []*contracts.Observation
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line++

		date, err := time.Parse("2006-01-02", record[index[contracts.ColDate]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q: %w", line, record[index[contracts.ColDate]], err)
		}

		obs := &contracts.Observation{
			IsoCode:  record[index[contracts.ColIsoCode]],
			Location: record[index[contracts.ColLocation]],
			Date:     date,
		}

		for _, col := range numericColumns {
			i, ok := index[col]
			if !ok {
				continue
			}
			cell := record[i]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s value %q: %w", line, col, cell, err)
			}
			*obs.Field(col) = &v
		}

		rows = append(rows, obs)
	}

	return dataset.New(rows, columns), nil
}
