// Package tfliteengine reads TFLite model metadata and, when built with the
// tflite tag, runs models through the TFLite C API.
package tfliteengine
