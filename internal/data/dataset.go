package data

import (
	"context"
	"fmt"
	"strings"

	"movieetl/internal/biz"
	"movieetl/internal/conf"
	"movieetl/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

const (
	tableTitleBasics  = "title_basics"
	tableTitleRatings = "title_ratings"
)

// titleRow and ratingRow read back the columns integration needs.
type titleRow struct {
	Tconst       *string `gorm:"column:tconst"`
	PrimaryTitle *string `gorm:"column:primaryTitle"`
	StartYear    *string `gorm:"column:startYear"`
}

type ratingRow struct {
	Tconst        *string `gorm:"column:tconst"`
	AverageRating *string `gorm:"column:averageRating"`
	NumVotes      *string `gorm:"column:numVotes"`
}

type datasetRepo struct {
	data  *Data
	batch int
	log   *log.Helper
}

// NewDatasetRepo creates the repository for untyped bulk dataset tables
func NewDatasetRepo(data *Data, c *conf.Dataset, logger log.Logger) biz.DatasetRepo {
	batch := c.InsertBatch
	if batch <= 0 {
		batch = insertBatchSize
	}
	return &datasetRepo{
		data:  data,
		batch: batch,
		log:   log.NewHelper(logger),
	}
}

func (r *datasetRepo) quote(name string) string {
	var b strings.Builder
	r.data.db.Dialector.QuoteTo(&b, name)
	return b.String()
}

func (r *datasetRepo) CreateTable(ctx context.Context, table string, columns []string) error {
	db := r.data.db.WithContext(ctx)
	if err := db.Migrator().DropTable(table); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		defs = append(defs, r.quote(col)+" TEXT")
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", r.quote(table), strings.Join(defs, ", "))
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}
	return nil
}

// AppendRows inserts rows as text; nil cells become NULL. Cells beyond the
// header are ignored and missing trailing cells are NULL.
func (r *datasetRepo) AppendRows(ctx context.Context, table string, columns []string, rows [][]*string) error {
	db := r.data.db.WithContext(ctx)
	for start := 0; start < len(rows); start += r.batch {
		end := min(start+r.batch, len(rows))

		values := make([]map[string]interface{}, 0, end-start)
		for _, row := range rows[start:end] {
			v := make(map[string]interface{}, len(columns))
			for i, col := range columns {
				if i < len(row) && row[i] != nil {
					v[col] = *row[i]
				} else {
					v[col] = nil
				}
			}
			values = append(values, v)
		}

		if err := db.Table(table).Create(&values).Error; err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

func (r *datasetRepo) CountRows(ctx context.Context, table string) (int64, error) {
	db := r.data.db.WithContext(ctx)
	if !db.Migrator().HasTable(table) {
		return 0, nil
	}
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// TrimRows deletes every row past the first max in physical order.
func (r *datasetRepo) TrimRows(ctx context.Context, table string, max int) error {
	db := r.data.db.WithContext(ctx)

	var rowID string
	switch db.Dialector.Name() {
	case "postgres":
		rowID = "ctid"
	case "sqlite":
		rowID = "rowid"
	default:
		return fmt.Errorf("trim not supported on %s", db.Dialector.Name())
	}

	t := clause.Table{Name: table}
	stmt := fmt.Sprintf("DELETE FROM ? WHERE %[1]s NOT IN (SELECT %[1]s FROM ? ORDER BY %[1]s LIMIT ?)", rowID)
	res := db.Exec(stmt, t, t, max)
	if res.Error != nil {
		return fmt.Errorf("failed to trim %s: %w", table, res.Error)
	}
	r.log.Infof("trimmed %d rows from %s", res.RowsAffected, table)
	metrics.TableRows.WithLabelValues(table).Set(float64(max))
	return nil
}

func (r *datasetRepo) ListTitles(ctx context.Context) ([]*biz.ExternalTitle, error) {
	var rows []titleRow
	if err := r.scan(ctx, tableTitleBasics, []string{"tconst", "primaryTitle", "startYear"}, &rows); err != nil {
		return nil, err
	}

	out := make([]*biz.ExternalTitle, 0, len(rows))
	for _, row := range rows {
		if row.Tconst == nil {
			continue
		}
		out = append(out, &biz.ExternalTitle{
			Tconst:       *row.Tconst,
			PrimaryTitle: row.PrimaryTitle,
			StartYear:    row.StartYear,
		})
	}
	return out, nil
}

func (r *datasetRepo) ListRatings(ctx context.Context) ([]*biz.ExternalRating, error) {
	var rows []ratingRow
	if err := r.scan(ctx, tableTitleRatings, []string{"tconst", "averageRating", "numVotes"}, &rows); err != nil {
		return nil, err
	}

	out := make([]*biz.ExternalRating, 0, len(rows))
	for _, row := range rows {
		if row.Tconst == nil {
			continue
		}
		out = append(out, &biz.ExternalRating{
			Tconst:        *row.Tconst,
			AverageRating: row.AverageRating,
			NumVotes:      row.NumVotes,
		})
	}
	return out, nil
}

// scan reads columns of table in table order. A missing table reads as empty.
func (r *datasetRepo) scan(ctx context.Context, table string, columns []string, dst interface{}) error {
	db := r.data.db.WithContext(ctx)
	if !db.Migrator().HasTable(table) {
		r.log.Warnf("table %s does not exist, treating as empty", table)
		return nil
	}
	if err := db.Table(table).Select(columns).Find(dst).Error; err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}
	return nil
}
