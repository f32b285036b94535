package service

import (
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/metrics"
)

// observe records a service operation. Use as
// defer observe("create", "post", time.Now(), &err).
func observe(operation, entity string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	metrics.RecordDatabaseOperation(operation, entity, e, time.Since(start))
}
