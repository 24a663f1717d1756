package health

import (
	"context"
	"fmt"

	"github.com/vispipe/vispipe/internal/pipeline"
)

// PipelineChecker reports whether the frame processor is still
// accepting work.
type PipelineChecker struct {
	processor *pipeline.Processor
}

func NewPipelineChecker(p *pipeline.Processor) *PipelineChecker {
	return &PipelineChecker{processor: p}
}

func (c *PipelineChecker) Name() string {
	return "pipeline"
}

func (c *PipelineChecker) Check(ctx context.Context) error {
	if state := c.processor.State(); state == pipeline.StateShutDown {
		return fmt.Errorf("frame processor is shut down")
	}
	return nil
}

// Pinger is the connectivity probe a broker-backed sink exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SinkChecker reports whether the annotation sink's backing service is
// reachable.
type SinkChecker struct {
	name   string
	pinger Pinger
}

func NewSinkChecker(name string, p Pinger) *SinkChecker {
	return &SinkChecker{name: name, pinger: p}
}

func (c *SinkChecker) Name() string {
	return "sink_" + c.name
}

func (c *SinkChecker) Check(ctx context.Context) error {
	if err := c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("sink %s unreachable: %w", c.name, err)
	}
	return nil
}
