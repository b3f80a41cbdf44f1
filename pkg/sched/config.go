package sched

// GroupConfig describes one workgroup: a contiguous band of worker indices
// sharing a name, priority, and set of per-worker queues.
type GroupConfig struct {
	Name        string
	StartThread WorkerID
	Count       WorkerID
	Priority    int
}

// StatsMode selects whether Scheduler tracks per-worker counters. Gated the
// same way as the allocator's Config.Stats: counting is cheap but not free,
// so it is opt-in.
type StatsMode uint8

const (
	StatsNone StatsMode = iota
	StatsBasic
)

// Config configures a Scheduler. Workgroups' worker count is derived as the
// maximum start+count across all configured groups.
type Config struct {
	Workgroups []GroupConfig

	// QueueCapacity is the per-worker MPMC queue capacity within each
	// workgroup. Rounded up to a power of two. Defaults to 256.
	QueueCapacity int

	// InboxCapacity is each worker's exclusive-inbox capacity. Defaults
	// to 64.
	InboxCapacity int

	Stats StatsMode
}

func (c Config) setDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.InboxCapacity <= 0 {
		c.InboxCapacity = 64
	}
	return c
}

// Stats are per-worker counters, all zero unless Config.Stats is
// StatsBasic.
type Stats struct {
	Executed    uint64 // work items run on this worker
	LocalHits   uint64 // local-work fast hand-offs claimed for this worker
	QueueMisses uint64 // SubmitGroup spins this worker induced waiting for a free queue slot
}
