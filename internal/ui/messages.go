package ui

import "github.com/cwbudde/echotrace/sonar"

// MeasurementMsg delivers a monitor result to the model.
type MeasurementMsg sonar.Measurement

// StatusMsg shows a device or application message in the status line.
type StatusMsg string
