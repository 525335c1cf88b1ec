/**
 * @description
 * Shared zap logger construction for the service. Production builds get the
 * standard JSON production config; anything else gets the human-readable
 * development config with debug enabled.
 *
 * @dependencies
 * - go.uber.org/zap: Structured logging.
 */
package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide logger. env is the APP_ENV config value.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
