package trainingdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

// WriteCSV writes the table with a header row of timestamp, hawker_id, every
// feature name, and crowd_level.
func WriteCSV(w io.Writer, table model.TrainingTable) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, model.NumFeatures+3)
	header = append(header, "timestamp", "hawker_id")
	header = append(header, model.FeatureNames...)
	header = append(header, "crowd_level")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(header))
	for i, rec := range table {
		if len(rec.Features) != model.NumFeatures {
			return fmt.Errorf("%w: record %d has %d features", common.ErrFeatureMismatch, i, len(rec.Features))
		}
		row[0] = rec.Timestamp.Format(time.RFC3339)
		row[1] = rec.HawkerID
		for j, value := range rec.Features {
			row[2+j] = strconv.FormatFloat(value, 'f', -1, 64)
		}
		row[len(row)-1] = string(rec.Label)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
