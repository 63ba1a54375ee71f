package data

import (
	"movieetl/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// NewStagingRepo returns the staging store backed by whichever store NewData opened.
func NewStagingRepo(data *Data, logger log.Logger) biz.StagingRepo {
	if data.kv != nil {
		return newBadgerStagingRepo(data.kv, logger)
	}
	return newRedisStagingRepo(data.rdb, data.staging.Prefix, logger)
}
