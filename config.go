package occumap

import "time"

// SourceConfig holds the per-sensor-input settings: queueing, retry,
// pose-wait, and undistortion behavior, all independent of any particular
// transport.
type SourceConfig struct {
	// TopicQueueLength bounds how many pending clouds/images a Queue
	// buffers per source before it starts dropping the oldest.
	TopicQueueLength int

	// MeasurementIntegratorNames lists which Integrator this source's
	// output is routed to (a source can feed more than one).
	MeasurementIntegratorNames []string

	// ProcessingRetryPeriod holds a retry period for items whose transform
	// was not yet available. Queue does not read it: a pending item is
	// retried only when ProcessQueue is called again.
	ProcessingRetryPeriod time.Duration

	// MaxWaitForPose is ProcessQueue's staleness limit: the oldest pending
	// cloud is dropped and logged once the newest pending cloud's end time
	// is more than this past the oldest cloud's start time.
	MaxWaitForPose time.Duration

	SensorFrameID string

	// TimeOffset holds a sensor/clock skew for this source. Nothing in this
	// package applies it; timestamps reach transform lookups unchanged.
	TimeOffset time.Duration

	UndistortMotion bool

	// NumUndistortionInterpolationIntervalsPerCloud is checked by Validate
	// when UndistortMotion is set. NewUndistorter takes its interval count
	// as an argument and does not read this field.
	NumUndistortionInterpolationIntervalsPerCloud int
}

// DefaultSourceConfig returns the engine's baseline per-source settings.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		TopicQueueLength:       10,
		ProcessingRetryPeriod:  100 * time.Millisecond,
		MaxWaitForPose:         1 * time.Second,
		UndistortMotion:        false,
		NumUndistortionInterpolationIntervalsPerCloud: 1,
	}
}

// Validate reports ErrInvalidConfig if cfg has values that can never
// produce valid processing.
func (cfg SourceConfig) Validate() error {
	if cfg.TopicQueueLength <= 0 {
		return ErrInvalidConfig
	}
	if cfg.SensorFrameID == "" {
		return ErrInvalidConfig
	}
	if cfg.UndistortMotion && cfg.NumUndistortionInterpolationIntervalsPerCloud < 1 {
		return ErrInvalidConfig
	}
	return nil
}
