// Package logging centralizes zap.Logger construction so every component
// builds its logger the same way instead of each calling zap.NewProduction
// or zap.NewNop directly.
package logging
