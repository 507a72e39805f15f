package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

var (
	// ErrDatasetNotFound is returned when the CSV file does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("dataset missing required column")
)

// Column names read from the CSV header.
const (
	ColDate            = "date"
	ColCampaignName    = "campaign_name"
	ColAdsetName       = "adset_name"
	ColCreativeType    = "creative_type"
	ColCreativeMessage = "creative_message"
	ColAudienceType    = "audience_type"
	ColCountry         = "country"
	ColSpend           = "spend"
	ColImpressions     = "impressions"
	ColClicks          = "clicks"
	ColPurchases       = "purchases"
	ColRevenue         = "revenue"
	ColCTR             = "ctr"
	ColROAS            = "roas"
)

var requiredColumns = []string{ColDate, ColSpend, ColImpressions, ColClicks, ColRevenue}

// Record is one cleaned ad performance row.
type Record struct {
	// Date is the zero time when the cell could not be parsed.
	Date            time.Time
	CampaignName    string
	AdsetName       string
	CreativeType    string
	CreativeMessage string
	AudienceType    string
	Country         string

	Spend       float64
	Impressions float64
	Clicks      float64
	Purchases   float64
	Revenue     float64
	// CTR and ROAS are recomputed from the counts, not read from the file.
	CTR  float64
	ROAS float64
}

// HasDate reports whether the row's date parsed.
func (r Record) HasDate() bool { return !r.Date.IsZero() }

// Dataset is a cleaned table.
type Dataset struct {
	Columns []string
	Records []Record
}

// Load reads and cleans the CSV file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses and cleans CSV data with a header row.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s (empty file)", ErrMissingColumn, ColDate)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	columns := make([]string, 0, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[name] = i
		columns = append(columns, name)
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return fixEncoding(strings.TrimSpace(row[i]))
	}

	ds := &Dataset{Columns: columns}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		rec := Record{
			Date:            parseDate(cell(row, ColDate)),
			CampaignName:    cell(row, ColCampaignName),
			AdsetName:       cell(row, ColAdsetName),
			CreativeType:    cell(row, ColCreativeType),
			CreativeMessage: cell(row, ColCreativeMessage),
			AudienceType:    cell(row, ColAudienceType),
			Country:         cell(row, ColCountry),
			Spend:           parseNumber(cell(row, ColSpend)),
			Impressions:     parseNumber(cell(row, ColImpressions)),
			Clicks:          parseNumber(cell(row, ColClicks)),
			Purchases:       parseNumber(cell(row, ColPurchases)),
			Revenue:         parseNumber(cell(row, ColRevenue)),
		}
		rec.CTR = ratio(rec.Clicks, rec.Impressions)
		rec.ROAS = ratio(rec.Revenue, rec.Spend)
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}
