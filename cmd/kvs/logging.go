package main

import "go.uber.org/zap"

// zapDevelopmentLogger builds the logger wired into the engine when
// --verbose is passed.
func zapDevelopmentLogger() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
