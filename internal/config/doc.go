// Package config loads the echotrace YAML configuration.
//
// Missing keys keep their defaults, so a file only needs to name the values
// it changes:
//
//	pulse:
//	  start_freq: 3000
//	  end_freq: 9000
//	logging:
//	  level: debug
//
// Every validation error wraps sonar.ErrInvalidParameter.
package config
