package enrich

import "errors"

var ErrStoreBatch = errors.New("store enriched batch failed")
