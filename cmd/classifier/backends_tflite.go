//go:build tflite

package main

import (
	"log/slog"

	"github.com/Brownie44l1/produce-classifier/internal/config"
	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/Brownie44l1/produce-classifier/internal/engine/tfliteengine"
)

func init() {
	backends["tflite"] = func(cfg *config.Model, logger *slog.Logger) engine.Backend {
		return tfliteengine.New(tfliteengine.Options{
			SchemaVersion: uint32(cfg.SchemaVersion),
			Threads:       cfg.Threads,
			Report: func(msg string) {
				logger.Error("TFLite runtime error", "message", msg)
			},
		})
	}
}
