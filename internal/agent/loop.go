package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/skypro1111/wake-edge-agent/internal/actuate"
	"github.com/skypro1111/wake-edge-agent/internal/audio"
	"github.com/skypro1111/wake-edge-agent/internal/classifier"
	"github.com/skypro1111/wake-edge-agent/internal/detect"
	"github.com/skypro1111/wake-edge-agent/internal/metrics"
	"github.com/skypro1111/wake-edge-agent/internal/protocol"
)

// State identifies the loop's current stage.
type State int

const (
	StateWarmup State = iota
	StateListening
	StateAlerting
	StateCapturing
	StateStreaming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateWarmup:
		return "WARMUP"
	case StateListening:
		return "LISTENING"
	case StateAlerting:
		return "ALERTING"
	case StateCapturing:
		return "CAPTURING"
	case StateStreaming:
		return "STREAMING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Streamer is the transport capability consumed by the loop.
type Streamer interface {
	Stream(samples []int16, confidence float32) error
	Chunks(sampleCount int) int
}

// AckFunc sends the action_result acknowledgment for one executed action.
// The server blocks on this ack, so it is sent for every action command,
// success or failure.
type AckFunc func(success bool, errMsg string) error

// Config contains the loop's fixed timing parameters.
type Config struct {
	WarmupSlices   int
	ReadRetryDelay time.Duration
	Cooldown       time.Duration
}

// Options collects the injected dependencies for a Loop. The loop owns no
// global state; everything it touches is passed in here.
type Options struct {
	Config   Config
	Driver   *detect.Driver
	Gate     *detect.Gate
	Recorder *audio.Recorder
	Streamer Streamer
	Pulser   *actuate.StatusPulser
	Actuator actuate.Actuator
	Commands <-chan *protocol.InboundMessage
	Ack      AckFunc
	Ready    func() bool
	Ticks    func() int64
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Loop sequences acquisition, detection, capture, and streaming on a
// single goroutine. It has no terminal state; Run exits only on context
// cancellation.
type Loop struct {
	cfg      Config
	driver   *detect.Driver
	gate     *detect.Gate
	recorder *audio.Recorder
	streamer Streamer
	pulser   *actuate.StatusPulser
	actuator actuate.Actuator
	commands <-chan *protocol.InboundMessage
	ack      AckFunc
	ready    func() bool
	ticks    func() int64
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// Read concurrently by the admin endpoint.
	state atomic.Int32

	// Last commanded level per target, kept on the loop goroutine so
	// "toggle" resolves without a read-back capability.
	levels map[string]bool
}

// NewLoop creates the orchestration loop.
func NewLoop(opts Options) (*Loop, error) {
	if opts.Driver == nil || opts.Gate == nil || opts.Recorder == nil {
		return nil, fmt.Errorf("driver, gate, and recorder are required")
	}
	if opts.Streamer == nil {
		return nil, fmt.Errorf("streamer is required")
	}
	if opts.Actuator == nil || opts.Pulser == nil {
		return nil, fmt.Errorf("actuator and pulser are required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	ready := opts.Ready
	if ready == nil {
		ready = func() bool { return true }
	}

	ticks := opts.Ticks
	if ticks == nil {
		start := time.Now()
		ticks = func() int64 { return time.Since(start).Milliseconds() }
	}

	return &Loop{
		cfg:      opts.Config,
		driver:   opts.Driver,
		gate:     opts.Gate,
		recorder: opts.Recorder,
		streamer: opts.Streamer,
		pulser:   opts.Pulser,
		actuator: opts.Actuator,
		commands: opts.Commands,
		ack:      opts.Ack,
		ready:    ready,
		ticks:    ticks,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		levels:   make(map[string]bool),
	}, nil
}

// Run executes the loop until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Wake detection starting",
		slog.Int("slice_samples", l.driver.SliceSize()),
		slog.String("target_label", l.gate.TargetLabel()),
		slog.Int("warmup_slices", l.cfg.WarmupSlices),
		slog.Int("capture_samples", l.recorder.SampleCount()),
	)

	l.warmup(ctx)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Loop stopped", slog.String("state", l.CurrentState().String()))
			return ctx.Err()
		default:
		}

		l.drainCommands()

		result, rms, err := l.driver.Cycle()
		if err != nil {
			l.handleCycleError(err)
			continue
		}

		if l.metrics != nil {
			l.metrics.RecordSlice(rms)
		}

		event, fired := l.gate.Evaluate(result, rms, l.ticks())
		if !fired {
			continue
		}

		l.handleWake(event)
	}
}

// warmup discards the initial slices without classification so the
// microphone and bus can settle.
func (l *Loop) warmup(ctx context.Context) {
	l.setState(StateWarmup)

	for discarded := 0; discarded < l.cfg.WarmupSlices; {
		if ctx.Err() != nil {
			return
		}
		if err := l.driver.Warmup(); err != nil {
			l.logger.Warn("Warmup read failed", slog.String("error", err.Error()))
			time.Sleep(l.cfg.ReadRetryDelay)
			continue
		}
		discarded++
	}

	l.logger.Info("Warmup complete")
	l.setState(StateListening)
}

// handleCycleError applies the error taxonomy: a bus failure skips the
// cycle after a short delay, a classifier failure just discards the
// cycle's result. Neither is fatal.
func (l *Loop) handleCycleError(err error) {
	switch {
	case errors.Is(err, audio.ErrBusRead):
		if l.metrics != nil {
			l.metrics.RecordBusReadFailure()
		}
		l.logger.Warn("Slice read failed, retrying", slog.String("error", err.Error()))
		time.Sleep(l.cfg.ReadRetryDelay)

	case errors.Is(err, classifier.ErrClassify):
		if l.metrics != nil {
			l.metrics.RecordClassifyFailure()
		}

	default:
		l.logger.Error("Unexpected cycle failure", slog.String("error", err.Error()))
	}
}

// handleWake runs the post-trigger sequence: alert pulses, capture, and
// streaming. The loop blocks here for the whole sequence, which is what
// prevents re-triggering while it runs.
func (l *Loop) handleWake(event *detect.WakeEvent) {
	l.logger.Info("Wake word detected",
		slog.Float64("confidence", float64(event.Confidence)),
		slog.Float64("rms", event.RMS),
		slog.Int64("ticks", event.Ticks),
	)
	if l.metrics != nil {
		l.metrics.RecordWakeEvent(float64(event.Confidence))
	}

	l.setState(StateAlerting)
	l.pulser.Pulse()

	l.setState(StateCapturing)
	err := l.recorder.Capture()
	if l.metrics != nil {
		l.metrics.RecordCapture(err == nil)
	}
	if err != nil {
		l.logger.Warn("Capture failed, returning to listening", slog.String("error", err.Error()))
		l.setState(StateListening)
		return
	}

	l.setState(StateStreaming)
	l.streamRecording(event)

	time.Sleep(l.cfg.Cooldown)
	l.setState(StateListening)
}

// streamRecording pushes the captured buffer over the transport. Both
// outcomes return to listening; a failure is never retried.
func (l *Loop) streamRecording(event *detect.WakeEvent) {
	if !l.ready() {
		l.logger.Warn("Connection not ready, recording dropped")
		return
	}

	if l.metrics != nil {
		l.metrics.RecordStreamStarted()
	}

	samples := l.recorder.Samples()
	if err := l.streamer.Stream(samples, event.Confidence); err != nil {
		if l.metrics != nil {
			l.metrics.RecordStreamFailure()
		}
		l.logger.Warn("Stream aborted", slog.String("error", err.Error()))
		return
	}

	if l.metrics != nil {
		l.metrics.RecordStreamCompleted()
		l.metrics.RecordChunksSent(l.streamer.Chunks(len(samples)))
	}
}

// drainCommands consumes any parsed inbound commands from the mailbox
// and actuates them synchronously on the loop goroutine.
func (l *Loop) drainCommands() {
	for {
		select {
		case msg := <-l.commands:
			l.handleCommand(msg)
		default:
			return
		}
	}
}

// handleCommand executes one remote command. Malformed or disallowed
// commands are logged and dropped; unknown types are ignored.
func (l *Loop) handleCommand(msg *protocol.InboundMessage) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case protocol.TypeAction:
		if l.metrics != nil {
			l.metrics.RecordCommand("action")
		}
		err := l.executeAction(msg.Action)
		l.sendAck(err)

	case protocol.TypePlay:
		if l.metrics != nil {
			l.metrics.RecordCommand("play")
		}
		// Playback hardware is not wired up yet; acknowledge only.
		l.logger.Info("Play acknowledged", slog.String("audio", msg.Play.Audio))

	default:
		l.logger.Debug("Ignoring inbound message", slog.String("type", msg.Type))
	}
}

// executeAction validates and applies one action payload. The returned
// error is what the action_result ack reports.
func (l *Loop) executeAction(action protocol.ActionPayload) error {
	if err := actuate.ValidateAction(action.Action, action.Target, action.Value); err != nil {
		if l.metrics != nil {
			l.metrics.RecordCommandError()
		}
		l.logger.Warn("Rejected action", slog.String("error", err.Error()))
		return err
	}

	if action.Action == "noop" {
		l.logger.Debug("Noop action")
		return nil
	}

	on := action.Value == "on"
	if action.Value == "toggle" {
		on = !l.levels[action.Target]
	}

	if err := l.actuator.Set(action.Target, on); err != nil {
		if l.metrics != nil {
			l.metrics.RecordCommandError()
		}
		l.logger.Warn("Actuation failed",
			slog.String("target", action.Target),
			slog.String("error", err.Error()),
		)
		return err
	}
	l.levels[action.Target] = on

	if action.Sound != "" {
		l.logger.Info("Feedback sound requested", slog.String("sound", action.Sound))
	}
	return nil
}

// sendAck reports an action's outcome back to the server. A failed send
// is logged and dropped; the ack is best-effort once the action ran.
func (l *Loop) sendAck(result error) {
	if l.ack == nil {
		return
	}

	errMsg := ""
	if result != nil {
		errMsg = result.Error()
	}
	if err := l.ack(result == nil, errMsg); err != nil {
		l.logger.Warn("Action ack not delivered", slog.String("error", err.Error()))
	}
}

// setState records a state transition.
func (l *Loop) setState(next State) {
	prev := State(l.state.Swap(int32(next)))
	if prev == next {
		return
	}
	l.logger.Debug("State transition",
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
	)
}

// CurrentState returns the loop's current state.
func (l *Loop) CurrentState() State {
	return State(l.state.Load())
}
