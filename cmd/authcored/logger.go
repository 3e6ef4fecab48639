package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/classtape/authcore/internal/config"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Log.Pretty {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level := new(zapcore.Level)
	if err := level.Set(cfg.Log.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(*level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build(zap.Fields(
		zap.String("service", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
	))
}
