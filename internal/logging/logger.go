// Package logging builds the zap logger shared by the service components.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a development logger when debug is set and a production
// (JSON) logger otherwise.
func New(debug bool) (*zap.SugaredLogger, error) {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %v", err)
	}

	return zapLogger.Sugar().With("app", "pws-daily-ingest"), nil
}
