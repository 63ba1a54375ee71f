package conf

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Bootstrap is the root of configs/config.yaml.
type Bootstrap struct {
	Server   *Server   `json:"server"`
	Data     *Data     `json:"data"`
	Catalog  *Catalog  `json:"catalog"`
	Dataset  *Dataset  `json:"dataset"`
	Pipeline *Pipeline `json:"pipeline"`
	Log      *Log      `json:"log"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
	// Cron spec for scheduled pipeline runs, empty disables the scheduler.
	Schedule string `json:"schedule"`
}

type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Staging  *Data_Staging  `json:"staging"`
}

type Data_Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

type Data_Redis struct {
	Addr         string    `json:"addr"`
	Password     string    `json:"password"`
	Db           int       `json:"db"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
}

// Data_Staging selects the document store backing the staging collections.
type Data_Staging struct {
	// Driver is "redis" or "badger".
	Driver string `json:"driver"`
	// Prefix namespaces redis keys.
	Prefix string `json:"prefix"`
	// Dir is the badger data directory, empty runs badger in memory.
	Dir string `json:"dir"`
}

type Catalog struct {
	Url     string    `json:"url"`
	Token   string    `json:"token"`
	Timeout *Duration `json:"timeout"`
}

type Dataset struct {
	BaseUrl     string    `json:"base_url"`
	DownloadDir string    `json:"download_dir"`
	ChunkSize   int       `json:"chunk_size"`
	MaxRecords  int       `json:"max_records"`
	InsertBatch int       `json:"insert_batch"`
	Timeout     *Duration `json:"timeout"`
}

type Pipeline struct {
	Category       string    `json:"category"`
	Pages          int       `json:"pages"`
	PageDelay      *Duration `json:"page_delay"`
	TransformLimit int       `json:"transform_limit"`
}

type Log struct {
	Level string `json:"level"`
}

// Duration accepts either a Go duration string ("200ms") or a number of
// nanoseconds.
type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// AsDuration returns the wrapped value; a nil receiver yields zero.
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Defaults fills zero values with the pipeline defaults.
func (b *Bootstrap) Defaults() {
	if b.Server == nil {
		b.Server = &Server{}
	}
	if b.Server.Http == nil {
		b.Server.Http = &Server_HTTP{Addr: "0.0.0.0:8000"}
	}
	if b.Data == nil {
		b.Data = &Data{}
	}
	if b.Data.Database == nil {
		b.Data.Database = &Data_Database{}
	}
	if b.Data.Database.Driver == "" {
		b.Data.Database.Driver = "postgres"
	}
	if b.Data.Redis == nil {
		b.Data.Redis = &Data_Redis{Addr: "127.0.0.1:6379"}
	}
	if b.Data.Staging == nil {
		b.Data.Staging = &Data_Staging{}
	}
	if b.Data.Staging.Driver == "" {
		b.Data.Staging.Driver = "redis"
	}
	if b.Data.Staging.Prefix == "" {
		b.Data.Staging.Prefix = "movieetl"
	}
	if b.Catalog == nil {
		b.Catalog = &Catalog{}
	}
	if b.Catalog.Url == "" {
		b.Catalog.Url = "https://api.themoviedb.org/3"
	}
	if b.Catalog.Timeout == nil {
		b.Catalog.Timeout = NewDuration(30 * time.Second)
	}
	if b.Dataset == nil {
		b.Dataset = &Dataset{}
	}
	if b.Dataset.BaseUrl == "" {
		b.Dataset.BaseUrl = "https://datasets.imdbws.com"
	}
	if b.Dataset.DownloadDir == "" {
		b.Dataset.DownloadDir = "data/imdb_raw"
	}
	if b.Dataset.ChunkSize <= 0 {
		b.Dataset.ChunkSize = 100_000
	}
	if b.Dataset.MaxRecords <= 0 {
		b.Dataset.MaxRecords = 2000
	}
	if b.Dataset.InsertBatch <= 0 {
		b.Dataset.InsertBatch = 500
	}
	if b.Dataset.Timeout == nil {
		b.Dataset.Timeout = NewDuration(10 * time.Minute)
	}
	if b.Pipeline == nil {
		b.Pipeline = &Pipeline{}
	}
	if b.Pipeline.Category == "" {
		b.Pipeline.Category = "top_rated"
	}
	if b.Pipeline.Pages <= 0 {
		b.Pipeline.Pages = 150
	}
	if b.Pipeline.PageDelay == nil {
		b.Pipeline.PageDelay = NewDuration(200 * time.Millisecond)
	}
	if b.Pipeline.TransformLimit <= 0 {
		b.Pipeline.TransformLimit = 2000
	}
	if b.Log == nil {
		b.Log = &Log{Level: "info"}
	}
}
