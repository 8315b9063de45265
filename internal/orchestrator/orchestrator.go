package orchestrator

import (
	"context"
	"time"

	"github.com/mumzworld-tech/logexport/internal/chain"
	"github.com/mumzworld-tech/logexport/internal/config"
	"github.com/mumzworld-tech/logexport/internal/exporttask"
	"github.com/mumzworld-tech/logexport/internal/logger"
	"github.com/mumzworld-tech/logexport/internal/prefix"
	"github.com/mumzworld-tech/logexport/internal/scheduler"
)

// State is a step of one hop of the export chain
type State int32

const (
	StateCheckActiveTask State = iota
	StateWaitAndReschedule
	StateStartExport
	StateDecideContinuation
	StateRescheduleNextGroup
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCheckActiveTask:
		return "CHECK_ACTIVE_TASK"
	case StateWaitAndReschedule:
		return "WAIT_AND_RESCHEDULE"
	case StateStartExport:
		return "START_EXPORT"
	case StateDecideContinuation:
		return "DECIDE_CONTINUATION"
	case StateRescheduleNextGroup:
		return "RESCHEDULE_NEXT_GROUP"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Prober reports on export tasks
type Prober interface {
	Status(ctx context.Context, taskID string) (exporttask.Status, bool, error)
	AnyRunning(ctx context.Context) (bool, error)
}

// Initiator starts export tasks
type Initiator interface {
	Create(ctx context.Context, req exporttask.Request) (string, error)
}

// Orchestrator runs one hop of the chain
type Orchestrator struct {
	prober    Prober
	initiator Initiator
	scheduler scheduler.Scheduler

	pollDelay        time.Duration
	location         *time.Location
	pinWindow        bool
	checkAccountBusy bool
	now              func() time.Time
}

// New creates an orchestrator over the three collaborators
func New(cfg *config.Config, p Prober, i Initiator, s scheduler.Scheduler) *Orchestrator {
	return &Orchestrator{
		prober:           p,
		initiator:        i,
		scheduler:        s,
		pollDelay:        cfg.PollDelay,
		location:         cfg.Location(),
		pinWindow:        cfg.PinWindow,
		checkAccountBusy: cfg.CheckAccountBusy,
		now:              time.Now,
	}
}

// hop is the working data of one invocation
type hop struct {
	in     chain.State
	window chain.Window
	next   chain.State
}

// Run executes one hop and returns the state it finished in: the waiting
// state, the next-group state, or DONE. Any error stops the chain.
func (o *Orchestrator) Run(ctx context.Context, in chain.State) (State, error) {
	if err := in.Validate(); err != nil {
		return StateDone, err
	}

	h := &hop{in: in, window: o.window(in)}

	state := StateStartExport
	if in.TaskID != "" || o.checkAccountBusy {
		state = StateCheckActiveTask
	}

	for {
		logger.Debugf("Hop state: %s", state)

		var err error
		switch state {
		case StateCheckActiveTask:
			state, err = o.checkActiveTask(ctx, h)
		case StateWaitAndReschedule:
			return state, o.waitAndReschedule(ctx, h)
		case StateStartExport:
			state, err = o.startExport(ctx, h)
		case StateDecideContinuation:
			state = o.decideContinuation(h)
		case StateRescheduleNextGroup:
			return state, o.rescheduleNextGroup(ctx, h)
		case StateDone:
			logger.Infof("No log groups remaining, export chain for s3://%s finished", in.BucketName)
			return state, nil
		}
		if err != nil {
			return state, err
		}
	}
}

// window keeps the chain's export period stable unless pinning is off
func (o *Orchestrator) window(in chain.State) chain.Window {
	if o.pinWindow && in.Window != nil {
		return *in.Window
	}
	return chain.NewWindow(o.now(), o.location)
}

// carry returns st with the window attached when the chain pins it
func (o *Orchestrator) carry(st chain.State, w chain.Window) chain.State {
	if o.pinWindow {
		st.Window = &w
	} else {
		st.Window = nil
	}
	return st
}

func (o *Orchestrator) checkActiveTask(ctx context.Context, h *hop) (State, error) {
	if h.in.TaskID != "" {
		logger.Infof("Checking status of export task %s", h.in.TaskID)
		status, found, err := o.prober.Status(ctx, h.in.TaskID)
		if err != nil {
			logger.Errorf("Failed to query export task %s: %v", h.in.TaskID, err)
			return StateCheckActiveTask, err
		}
		if found && status.Active() {
			logger.Infof("Export task %s is %s", h.in.TaskID, status)
			return StateWaitAndReschedule, nil
		}
		if !found {
			logger.Infof("Export task %s not found, treating as finished", h.in.TaskID)
		} else {
			logger.Infof("Export task %s finished with %s", h.in.TaskID, status)
		}
		return StateStartExport, nil
	}

	// Without a task id only the account-wide probe applies
	running, err := o.prober.AnyRunning(ctx)
	if err != nil {
		logger.Errorf("Failed to query running export tasks: %v", err)
		return StateCheckActiveTask, err
	}
	if running {
		logger.Infof("Another export task is RUNNING in this account")
		return StateWaitAndReschedule, nil
	}
	return StateStartExport, nil
}

func (o *Orchestrator) waitAndReschedule(ctx context.Context, h *hop) error {
	next := o.carry(h.in, h.window)
	if err := o.scheduler.ScheduleNext(ctx, next, o.pollDelay); err != nil {
		logger.Errorf("Failed to reschedule while waiting on export task %q: %v", h.in.TaskID, err)
		return err
	}
	return nil
}

func (o *Orchestrator) startExport(ctx context.Context, h *hop) (State, error) {
	group, rest, ok := h.in.LogGroups.PopHead()
	if !ok {
		return StateDone, nil
	}

	key := prefix.Build(group, h.window.Date, h.in.Prefix)
	logger.Infof("Starting export of %s to s3://%s/%s", group, h.in.BucketName, key)

	taskID, err := o.initiator.Create(ctx, exporttask.Request{
		LogGroupName:      group,
		Destination:       h.in.BucketName,
		DestinationPrefix: key,
		From:              h.window.From,
		To:                h.window.To,
	})
	if err != nil {
		logger.Errorf("Failed to start export of %s: %v", group, err)
		return StateStartExport, err
	}

	next := h.in
	next.LogGroups = rest
	next.TaskID = taskID
	h.next = o.carry(next, h.window)

	return StateDecideContinuation, nil
}

func (o *Orchestrator) decideContinuation(h *hop) State {
	remaining := h.next.LogGroups.Len()
	logger.Infof("%d log group(s) remaining", remaining)
	if remaining > 0 {
		return StateRescheduleNextGroup
	}
	return StateDone
}

func (o *Orchestrator) rescheduleNextGroup(ctx context.Context, h *hop) error {
	// The next hop polls the task just created before starting its own
	if err := o.scheduler.ScheduleNext(ctx, h.next, 0); err != nil {
		logger.Errorf("Failed to reschedule next log group: %v", err)
		return err
	}
	return nil
}
