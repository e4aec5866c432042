package main

import (
	"log/slog"

	"github.com/Brownie44l1/produce-classifier/internal/config"
	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/Brownie44l1/produce-classifier/internal/engine/ortengine"
)

type backendFactory func(cfg *config.Model, logger *slog.Logger) engine.Backend

// backends maps config.Model.Backend to a constructor. Optional backends
// register themselves from build-tagged files.
var backends = map[string]backendFactory{
	"onnxruntime": func(cfg *config.Model, _ *slog.Logger) engine.Backend {
		return ortengine.New(ortengine.Options{
			LibraryPath:   cfg.LibraryPath,
			SchemaVersion: uint32(cfg.SchemaVersion),
			Threads:       cfg.Threads,
		})
	},
}
