package dataset

import (
	"context"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	// NAValues are read as missing in addition to DefaultNAValues.
	NAValues []string
	// Delimiter defaults to ','.
	Delimiter rune
	// Kinds are attached to the resulting table.
	Kinds map[string]table.Kind
}

// ReadCSV reads a headed CSV stream. Type detection is off so that values
// such as "0" and "0.0" reach the pipeline exactly as recorded.
func ReadCSV(r io.Reader, opts CSVOptions) (*table.Table, error) {
	loadOpts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naSet(opts.NAValues)),
	}
	if opts.Delimiter != 0 {
		loadOpts = append(loadOpts, dataframe.WithDelimiter(opts.Delimiter))
	}

	df := dataframe.ReadCSV(r, loadOpts...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "read csv")
	}
	return fromDataFrame(df, opts.Kinds)
}

func fromDataFrame(df dataframe.DataFrame, kinds map[string]table.Kind) (*table.Table, error) {
	names := df.Names()
	t, err := table.New(names, table.WithKinds(kinds))
	if err != nil {
		return nil, err
	}

	cols := make([]series.Series, len(names))
	for j, name := range names {
		cols[j] = df.Col(name)
	}
	for i := 0; i < df.Nrow(); i++ {
		row := make(table.Row, len(names))
		for j, name := range names {
			e := cols[j].Elem(i)
			if e.IsNA() {
				row[name] = table.Missing()
				continue
			}
			row[name] = table.V(e.String())
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// CSVFile is a Source reading a CSV file from disk.
type CSVFile struct {
	Path    string
	Options CSVOptions
}

// Name returns the path.
func (f CSVFile) Name() string { return f.Path }

// Load opens and reads the file.
func (f CSVFile) Load(_ context.Context) (*table.Table, error) {
	return LoadCSVFile(f.Path, f.Options)
}

// LoadCSVFile reads the CSV file at path.
func LoadCSVFile(path string, opts CSVOptions) (*table.Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer fh.Close()

	t, err := ReadCSV(fh, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// WriteCSV writes t with a header row. Missing values are written as empty
// fields.
func WriteCSV(w io.Writer, t *table.Table) error {
	if t.Len() == 0 {
		return errors.NewValueError("write csv", "table has no rows")
	}
	columns := t.Columns()
	records := make([][]string, 0, t.Len()+1)
	records = append(records, columns)
	for _, row := range t.Rows() {
		rec := make([]string, len(columns))
		for j, col := range columns {
			if v := row.Get(col); !v.Missing {
				rec[j] = v.Raw
			}
		}
		records = append(records, rec)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return errors.Wrap(df.Err, "build csv frame")
	}
	if err := df.WriteCSV(w); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}
