package helpers

import (
	"go.uber.org/zap"
)

// InitLogger initializes the global zap logger instance and returns its configuration.
// Production mode enables sampled JSON output, otherwise a development console encoder is used.
func InitLogger(production bool) zap.Config {
	var zapConfig zap.Config
	if production {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	return zapConfig
}
