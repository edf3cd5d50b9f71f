package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ArrivalRow is one row of the Arrivals table: entity type, rate, rate
// unit, distribution, and the window it applies over.
type ArrivalRow struct {
	EntityType   string
	Rate         float64
	RateUnit     string
	Distribution string
	StartTime    float64
	EndTime      float64
}

// ProcessRow is one row of the Processes table: a named operation
// consuming a resource for a sampled duration, with an optional pointer
// to the next operation.
type ProcessRow struct {
	Name         string
	EntityType   string
	Resource     string
	Time         float64
	Distribution string
	Next         string
}

// ResourceRow is one row of the Resources table: a station definition
// with capacity and failure characteristics.
type ResourceRow struct {
	Name        string
	Type        string
	Capacity    int
	CostPerHour float64
	MTBF        float64
	MTTR        float64
}

// RoutingRow is one row of the Routings table: an edge between two named
// operations/resources, optionally conditioned or weighted.
type RoutingRow struct {
	From        string
	To          string
	Condition   string
	Probability float64
	Priority    int
}

// ParameterRow is one row of the Parameters table: a free-form scalar
// knob (e.g. simulation_time, warmup_time, replications).
type ParameterRow struct {
	Parameter string
	Value     string
	Unit      string
}

// headerIndex maps a CSV file's header-normalized field names (lowercased,
// trimmed, spaces folded to underscores) to their column index, so row
// parsing doesn't depend on column order.
type headerIndex map[string]int

func readHeaderIndex(reader *csv.Reader) (headerIndex, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	idx := make(headerIndex, len(header))
	for i, col := range header {
		idx[normalizeHeader(col)] = i
	}
	return idx, nil
}

func normalizeHeader(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.ReplaceAll(col, " ", "_")
}

func (idx headerIndex) field(record []string, row int, name string) (string, error) {
	col, ok := idx[name]
	if !ok {
		return "", nil // optional/missing column; caller decides if that's fatal
	}
	if col >= len(record) {
		return "", fmt.Errorf("csv row %d: column %q out of range", row, name)
	}
	return strings.TrimSpace(record[col]), nil
}

func (idx headerIndex) floatField(record []string, row int, name string) (float64, error) {
	s, err := idx.field(record, row, name)
	if err != nil || s == "" {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("csv row %d: invalid %s %q: %w", row, name, s, err)
	}
	return v, nil
}

func (idx headerIndex) intField(record []string, row int, name string) (int, error) {
	v, err := idx.floatField(record, row, name)
	return int(v), err
}

// ParseArrivalsCSV reads the Arrivals table.
func ParseArrivalsCSV(r io.Reader) ([]ArrivalRow, error) {
	reader := csv.NewReader(r)
	idx, err := readHeaderIndex(reader)
	if err != nil {
		return nil, err
	}

	var rows []ArrivalRow
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading arrivals csv at row %d: %w", i, err)
		}

		entityType, _ := idx.field(record, i, "entity_type")
		rateUnit, _ := idx.field(record, i, "rate_unit")
		distribution, _ := idx.field(record, i, "distribution")
		rate, err := idx.floatField(record, i, "rate")
		if err != nil {
			return nil, err
		}
		start, err := idx.floatField(record, i, "start_time")
		if err != nil {
			return nil, err
		}
		end, err := idx.floatField(record, i, "end_time")
		if err != nil {
			return nil, err
		}

		rows = append(rows, ArrivalRow{
			EntityType:   entityType,
			Rate:         rate,
			RateUnit:     rateUnit,
			Distribution: distribution,
			StartTime:    start,
			EndTime:      end,
		})
	}
	return rows, nil
}

// ParseProcessesCSV reads the Processes table.
func ParseProcessesCSV(r io.Reader) ([]ProcessRow, error) {
	reader := csv.NewReader(r)
	idx, err := readHeaderIndex(reader)
	if err != nil {
		return nil, err
	}

	var rows []ProcessRow
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading processes csv at row %d: %w", i, err)
		}

		name, _ := idx.field(record, i, "name")
		entityType, _ := idx.field(record, i, "entity_type")
		resource, _ := idx.field(record, i, "resource")
		distribution, _ := idx.field(record, i, "distribution")
		next, _ := idx.field(record, i, "next")
		t, err := idx.floatField(record, i, "time")
		if err != nil {
			return nil, err
		}

		rows = append(rows, ProcessRow{
			Name:         name,
			EntityType:   entityType,
			Resource:     resource,
			Time:         t,
			Distribution: distribution,
			Next:         next,
		})
	}
	return rows, nil
}

// ParseResourcesCSV reads the Resources table.
func ParseResourcesCSV(r io.Reader) ([]ResourceRow, error) {
	reader := csv.NewReader(r)
	idx, err := readHeaderIndex(reader)
	if err != nil {
		return nil, err
	}

	var rows []ResourceRow
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading resources csv at row %d: %w", i, err)
		}

		name, _ := idx.field(record, i, "name")
		resType, _ := idx.field(record, i, "type")
		capacity, err := idx.intField(record, i, "capacity")
		if err != nil {
			return nil, err
		}
		cost, err := idx.floatField(record, i, "cost/hour")
		if err != nil {
			return nil, err
		}
		mtbf, err := idx.floatField(record, i, "mtbf")
		if err != nil {
			return nil, err
		}
		mttr, err := idx.floatField(record, i, "mttr")
		if err != nil {
			return nil, err
		}

		rows = append(rows, ResourceRow{
			Name:        name,
			Type:        resType,
			Capacity:    capacity,
			CostPerHour: cost,
			MTBF:        mtbf,
			MTTR:        mttr,
		})
	}
	return rows, nil
}

// ParseRoutingsCSV reads the Routings table.
func ParseRoutingsCSV(r io.Reader) ([]RoutingRow, error) {
	reader := csv.NewReader(r)
	idx, err := readHeaderIndex(reader)
	if err != nil {
		return nil, err
	}

	var rows []RoutingRow
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading routings csv at row %d: %w", i, err)
		}

		from, _ := idx.field(record, i, "from")
		to, _ := idx.field(record, i, "to")
		condition, _ := idx.field(record, i, "condition")
		probability, err := idx.floatField(record, i, "probability")
		if err != nil {
			return nil, err
		}
		priority, err := idx.intField(record, i, "priority")
		if err != nil {
			return nil, err
		}

		rows = append(rows, RoutingRow{
			From:        from,
			To:          to,
			Condition:   condition,
			Probability: probability,
			Priority:    priority,
		})
	}
	return rows, nil
}

// ParseParametersCSV reads the Parameters table.
func ParseParametersCSV(r io.Reader) ([]ParameterRow, error) {
	reader := csv.NewReader(r)
	idx, err := readHeaderIndex(reader)
	if err != nil {
		return nil, err
	}

	var rows []ParameterRow
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading parameters csv at row %d: %w", i, err)
		}

		parameter, _ := idx.field(record, i, "parameter")
		value, _ := idx.field(record, i, "value")
		unit, _ := idx.field(record, i, "unit")

		rows = append(rows, ParameterRow{Parameter: parameter, Value: value, Unit: unit})
	}
	return rows, nil
}
