package data

// Movie represents the movies table
type Movie struct {
	MovieID     int64    `gorm:"column:movie_id;primaryKey;autoIncrement:false"`
	Title       *string  `gorm:"column:title;type:text"`
	Overview    *string  `gorm:"column:overview;type:text"`
	ReleaseDate *string  `gorm:"column:release_date;type:text"`
	Popularity  *float64 `gorm:"column:popularity"`
	VoteAverage *float64 `gorm:"column:vote_average"`
	VoteCount   *int64   `gorm:"column:vote_count"`
	Runtime     *int64   `gorm:"column:runtime"`
	Budget      *int64   `gorm:"column:budget"`
	Revenue     *int64   `gorm:"column:revenue"`
	Status      *string  `gorm:"column:status;type:text"`
	Language    *string  `gorm:"column:language;type:text"`
}

// TableName overrides the table name
func (Movie) TableName() string {
	return "movies"
}

// Genre represents the genres table
type Genre struct {
	GenreID   int64  `gorm:"column:genre_id;primaryKey;autoIncrement:false"`
	GenreName string `gorm:"column:genre_name;type:text"`
}

func (Genre) TableName() string {
	return "genres"
}

// MovieGenre links movies to genres; duplicates are kept.
type MovieGenre struct {
	MovieID int64 `gorm:"column:movie_id;index"`
	GenreID int64 `gorm:"column:genre_id"`
}

func (MovieGenre) TableName() string {
	return "movie_genres"
}

// Cast represents the cast table, one row per credited appearance
type Cast struct {
	MovieID       int64    `gorm:"column:movie_id;index"`
	ActorID       int64    `gorm:"column:actor_id"`
	ActorName     *string  `gorm:"column:actor_name;type:text"`
	CharacterName *string  `gorm:"column:character_name;type:text"`
	Gender        *int64   `gorm:"column:gender"`
	Popularity    *float64 `gorm:"column:popularity"`
}

func (Cast) TableName() string {
	return "cast"
}

// Crew represents the crew table
type Crew struct {
	MovieID    int64   `gorm:"column:movie_id;index"`
	PersonID   int64   `gorm:"column:person_id"`
	Name       *string `gorm:"column:name;type:text"`
	Job        *string `gorm:"column:job;type:text"`
	Department *string `gorm:"column:department;type:text"`
}

func (Crew) TableName() string {
	return "crew"
}

// MovieIntegrated represents the movies_integrated table
type MovieIntegrated struct {
	MovieID     int64    `gorm:"column:movie_id;primaryKey;autoIncrement:false"`
	Title       *string  `gorm:"column:title;type:text"`
	ReleaseDate *string  `gorm:"column:release_date;type:text"`
	Year        *int64   `gorm:"column:year"`
	Budget      *int64   `gorm:"column:budget"`
	Revenue     *int64   `gorm:"column:revenue"`
	Profit      *int64   `gorm:"column:profit"`
	ROI         *float64 `gorm:"column:roi"`
	TMDBRating  *float64 `gorm:"column:tmdb_rating"`
	TMDBVotes   *int64   `gorm:"column:tmdb_votes"`
	IMDbRating  *float64 `gorm:"column:imdb_rating"`
	IMDbVotes   *int64   `gorm:"column:imdb_votes"`
	Tconst      *string  `gorm:"column:tconst;type:text"`
}

func (MovieIntegrated) TableName() string {
	return "movies_integrated"
}
