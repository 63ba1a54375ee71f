package data

import (
	"context"
	"testing"

	"movieetl/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatasetRepo(t *testing.T) *datasetRepo {
	return NewDatasetRepo(newTestData(t), &conf.Dataset{InsertBatch: 2}, log.DefaultLogger).(*datasetRepo)
}

func textRow(cells ...string) []*string {
	row := make([]*string, len(cells))
	for i := range cells {
		if cells[i] == nullMarker {
			continue
		}
		row[i] = &cells[i]
	}
	return row
}

func TestDatasetRepoLoadAndTrim(t *testing.T) {
	ctx := context.Background()
	repo := newTestDatasetRepo(t)
	columns := []string{"tconst", "averageRating", "numVotes"}

	require.NoError(t, repo.CreateTable(ctx, tableTitleRatings, columns))
	require.NoError(t, repo.AppendRows(ctx, tableTitleRatings, columns, [][]*string{
		textRow("tt1", "8.8", "100"),
		textRow("tt2", "7.0", `\N`),
		textRow("tt3", "6.5"),
	}))
	require.NoError(t, repo.AppendRows(ctx, tableTitleRatings, columns, [][]*string{
		textRow("tt4", "5.0", "10"),
		textRow("tt5", "4.0", "1"),
	}))

	n, err := repo.CountRows(ctx, tableTitleRatings)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, repo.TrimRows(ctx, tableTitleRatings, 3))
	ratings, err := repo.ListRatings(ctx)
	require.NoError(t, err)
	require.Len(t, ratings, 3)
	assert.Equal(t, "tt1", ratings[0].Tconst)
	assert.Equal(t, "8.8", *ratings[0].AverageRating)
	assert.Nil(t, ratings[1].NumVotes)
	assert.Nil(t, ratings[2].NumVotes)
	assert.Equal(t, "tt3", ratings[2].Tconst)
}

func TestDatasetRepoCreateTableReplaces(t *testing.T) {
	ctx := context.Background()
	repo := newTestDatasetRepo(t)
	columns := []string{"tconst", "primaryTitle", "startYear"}

	require.NoError(t, repo.CreateTable(ctx, tableTitleBasics, columns))
	require.NoError(t, repo.AppendRows(ctx, tableTitleBasics, columns, [][]*string{
		textRow("tt1375666", "Inception", "2010"),
	}))
	require.NoError(t, repo.CreateTable(ctx, tableTitleBasics, columns))

	n, err := repo.CountRows(ctx, tableTitleBasics)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.AppendRows(ctx, tableTitleBasics, columns, [][]*string{
		textRow("tt1375666", "Inception", "2010"),
	}))
	titles, err := repo.ListTitles(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Inception", *titles[0].PrimaryTitle)
	assert.Equal(t, "2010", *titles[0].StartYear)
}

func TestDatasetRepoMissingTables(t *testing.T) {
	ctx := context.Background()
	repo := newTestDatasetRepo(t)

	titles, err := repo.ListTitles(ctx)
	require.NoError(t, err)
	assert.Empty(t, titles)

	n, err := repo.CountRows(ctx, "title_akas")
	require.NoError(t, err)
	assert.Zero(t, n)
}
