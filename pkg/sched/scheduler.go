//go:build go1.23

package sched

import (
	"sort"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/timandy/routine"

	"github.com/latticeforge/corekit/internal/debug"
	"github.com/latticeforge/corekit/pkg/sched/queue"
)

// WorkerID identifies one of the scheduler's fixed worker slots.
type WorkerID int32

// GroupID identifies a configured workgroup. noGroup (-1) marks a WorkItem
// that was submitted directly to a worker rather than through a group.
type GroupID int32

const noGroup GroupID = -1

// WorkerDesc is passed to the entry function every worker runs once at
// startup, before it joins the run loop.
type WorkerDesc struct {
	ID WorkerID
}

// WorkerContext is cached per (worker, workgroup) pair at scheduler
// construction and is immutable once BeginExecution returns control to a
// worker's run loop. Work items receive the context of whichever
// worker/group pair they actually ran on.
type WorkerContext struct {
	scheduler *Scheduler
	self      WorkerID
	group     GroupID
	groupMask uint64
	offset    WorkerID
	user      any
}

func (c *WorkerContext) Scheduler() *Scheduler { return c.scheduler }
func (c *WorkerContext) Self() WorkerID        { return c.self }
func (c *WorkerContext) Group() GroupID        { return c.group }
func (c *WorkerContext) GroupMask() uint64     { return c.groupMask }
func (c *WorkerContext) Offset() WorkerID      { return c.offset }
func (c *WorkerContext) User() any             { return c.user }

type workerStats struct {
	executed    atomix.Uint64
	localHits   atomix.Uint64
	queueMisses atomix.Uint64
}

type workerState struct {
	id    WorkerID
	inbox *queue.Inbox[WorkItem]

	// order is this worker's workgroups sorted by descending priority,
	// ties broken by ascending GroupID — the scan order getWork uses.
	order    []GroupID
	contexts map[GroupID]*WorkerContext
	selfCtx  *WorkerContext

	wakeStatus atomix.Uint64 // 0 = asleep/claimable, 1 = awake/claimed
	wake       chan struct{}
	quitting   atomix.Bool

	// localWork/localPending implement the local_work_ fast hand-off.
	// A submitter only ever writes them after winning the
	// wakeStatus CompareAndSwap(0, 1) claim, and the owning
	// worker only ever reads/clears them on the next loop iteration —
	// which happens-after either that claim (first pass) or the
	// channel receive the claiming submitter used to wake it. No
	// additional synchronization guards the fields themselves.
	localWork    WorkItem
	localPending bool

	stats workerStats
}

type groupState struct {
	id       GroupID
	name     string
	start    WorkerID
	count    WorkerID
	priority int

	pushOffset atomix.Uint64
	queues     []*queue.MPMC[WorkItem]
}

// Scheduler is a fixed OS-thread-shaped worker pool partitioned into
// workgroups. Workers round-robin-scan their groups' queues for work,
// favoring direct worker-to-worker and group-to-worker hand-off over
// queuing when a target is idle.
type Scheduler struct {
	cfg          Config
	statsEnabled bool

	groups   []*groupState
	registry *nameRegistry
	workers  []*workerState

	stop         atomix.Bool
	pending      atomix.Int64
	startBarrier sync.WaitGroup
}

// New builds a Scheduler from cfg. It does not spawn any workers — call
// BeginExecution for that.
func New(cfg Config) *Scheduler {
	cfg = cfg.setDefaults()

	var workerCount WorkerID
	for _, gc := range cfg.Workgroups {
		if end := gc.StartThread + gc.Count; end > workerCount {
			workerCount = end
		}
	}

	s := &Scheduler{
		cfg:          cfg,
		statsEnabled: cfg.Stats == StatsBasic,
		registry:     newNameRegistry(),
	}

	s.groups = make([]*groupState, len(cfg.Workgroups))
	for i, gc := range cfg.Workgroups {
		g := &groupState{
			id:       GroupID(i),
			name:     gc.Name,
			start:    gc.StartThread,
			count:    gc.Count,
			priority: gc.Priority,
			queues:   make([]*queue.MPMC[WorkItem], gc.Count),
		}
		for q := range g.queues {
			g.queues[q] = queue.NewMPMC[WorkItem](cfg.QueueCapacity)
		}
		s.groups[i] = g
		if gc.Name != "" {
			s.registry.register(gc.Name, g.id)
		}
	}

	s.workers = make([]*workerState, workerCount)
	for i := range s.workers {
		s.workers[i] = &workerState{
			id:       WorkerID(i),
			inbox:    queue.NewInbox[WorkItem](cfg.InboxCapacity),
			wake:     make(chan struct{}, 1),
			contexts: make(map[GroupID]*WorkerContext),
		}
	}

	for _, w := range s.workers {
		var member []*groupState
		var mask uint64
		for _, g := range s.groups {
			if w.id >= g.start && w.id < g.start+g.count {
				member = append(member, g)
				mask |= 1 << uint(g.id)
			}
		}
		sort.SliceStable(member, func(a, b int) bool {
			if member[a].priority != member[b].priority {
				return member[a].priority > member[b].priority
			}
			return member[a].id < member[b].id
		})

		w.order = make([]GroupID, len(member))
		for i, g := range member {
			w.order[i] = g.id
			w.contexts[g.id] = &WorkerContext{
				scheduler: s,
				self:      w.id,
				group:     g.id,
				groupMask: mask,
				offset:    w.id - g.start,
			}
		}
		w.selfCtx = &WorkerContext{scheduler: s, self: w.id, group: noGroup, groupMask: mask}
	}

	return s
}

// WorkgroupByName looks up a configured workgroup's GroupID by the name it
// was given in Config.Workgroups.
func (s *Scheduler) WorkgroupByName(name string) (GroupID, bool) {
	return s.registry.lookup(name)
}

// WorkerCount returns the number of worker slots derived from Config.
func (s *Scheduler) WorkerCount() int {
	return len(s.workers)
}

// Config returns the configuration this Scheduler was built from.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Stats returns id's counters. Always zero unless Config.Stats is
// StatsBasic.
func (s *Scheduler) Stats(id WorkerID) Stats {
	w := s.workers[id]
	return Stats{
		Executed:    w.stats.executed.LoadAcquire(),
		LocalHits:   w.stats.localHits.LoadAcquire(),
		QueueMisses: w.stats.queueMisses.LoadAcquire(),
	}
}

var currentWorker = routine.NewThreadLocal[*workerState]()

// CurrentWorkerID returns the calling goroutine's worker id, if it is
// running as part of a Scheduler's run loop (i.e. called from inside an
// entry function or a submitted WorkItem).
func CurrentWorkerID() (WorkerID, bool) {
	w := currentWorker.Get()
	if w == nil {
		return 0, false
	}
	return w.id, true
}

// BeginExecution starts the pool: it spawns one goroutine per worker
// except worker 0, then runs worker 0's entire run loop on the calling
// goroutine. Per the main-goroutine-is-worker-0 rule, BeginExecution does
// not return until something — typically a task running on this pool —
// calls EndExecution from a different goroutine.
//
// entry runs once on every worker, including worker 0, before that worker
// processes work. Worker 0 additionally waits until every worker has run
// entry; the other workers do not wait for each other. userContext is
// reachable from every WorkerContext via WorkerContext.User.
func (s *Scheduler) BeginExecution(entry func(WorkerDesc), userContext any) error {
	if len(s.workers) == 0 {
		return ErrNoWorkers
	}

	for _, w := range s.workers {
		w.selfCtx.user = userContext
		for _, c := range w.contexts {
			c.user = userContext
		}
	}

	s.startBarrier.Add(len(s.workers))

	for _, w := range s.workers[1:] {
		go s.runWorker(w, entry)
	}

	s.runWorker(s.workers[0], entry)
	return nil
}

func (s *Scheduler) runWorker(w *workerState, entry func(WorkerDesc)) {
	currentWorker.Set(w)

	entry(WorkerDesc{ID: w.id})
	s.startBarrier.Done()
	if w.id == 0 {
		s.startBarrier.Wait()
	}

	for {
		if w.localPending {
			item := w.localWork
			w.localWork = WorkItem{}
			w.localPending = false
			s.runItem(w, item)
		}

		for s.getWork(w) {
		}

		w.wakeStatus.StoreRelease(0)

		if s.stop.LoadAcquire() {
			break
		}

		<-w.wake
	}

	w.quitting.StoreRelease(true)
}

// getWork tries, in priority order, every queue of every workgroup w
// belongs to (starting at w's own offset within the group, for locality),
// then w's exclusive inbox. Returns whether it found and ran an item.
func (s *Scheduler) getWork(w *workerState) bool {
	for _, gid := range w.order {
		g := s.groups[gid]
		n := int(g.count)
		base := int(w.id - g.start)

		for q := 0; q < n; q++ {
			idx := (base + q) % n
			if item, err := g.queues[idx].Dequeue(); err == nil {
				s.runItem(w, item)
				return true
			}
		}
	}

	if item, ok := w.inbox.Pop(); ok {
		s.runItem(w, item)
		return true
	}

	debug.Log(nil, "get-work", "worker %d found nothing", w.id)
	return false
}

func (s *Scheduler) runItem(w *workerState, item WorkItem) {
	item.run(s.contextFor(w, item.group))
	s.pending.AddAcqRel(-1)
	if s.statsEnabled {
		w.stats.executed.AddAcqRel(1)
	}
}

func (s *Scheduler) contextFor(w *workerState, gid GroupID) *WorkerContext {
	if gid >= 0 {
		if c, ok := w.contexts[gid]; ok {
			return c
		}
	}
	return w.selfCtx
}

func (s *Scheduler) wake(w *workerState) {
	if !w.wakeStatus.CompareAndSwapAcqRel(0, 1) {
		return
	}
	debug.Log(nil, "wake", "worker %d", w.id)
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Submit hands item to dst, tagging it with noGroup. If src == dst it runs
// inline on the calling goroutine before Submit returns. Otherwise it pushes to
// dst's exclusive inbox, spinning if the inbox is momentarily full, and
// wakes dst if it was sleeping.
func (s *Scheduler) Submit(src, dst WorkerID, item WorkItem) {
	debug.Assert(!s.stop.LoadAcquire(), "sched: Submit called after EndExecution")
	debug.Log(nil, "submit", "%d -> %d", src, dst)

	item.group = noGroup
	s.pending.AddAcqRel(1)

	if src == dst {
		s.runItem(s.workers[src], item)
		return
	}

	d := s.workers[dst]
	var sw spin.Wait
	for d.inbox.Push(item) != nil {
		sw.Once()
	}

	s.wake(d)
}

// SubmitGroup hands item to workgroup dst. It first tries a local-work
// fast hand-off to any idle worker in the group (claimed via
// wakeStatus.CompareAndSwap(0, 1)); failing that, it round-robins
// through the group's per-worker queues, spinning if every queue is
// momentarily full.
func (s *Scheduler) SubmitGroup(src WorkerID, dst GroupID, item WorkItem) error {
	debug.Assert(!s.stop.LoadAcquire(), "sched: SubmitGroup called after EndExecution")

	if int(dst) < 0 || int(dst) >= len(s.groups) {
		return ErrUnknownGroup
	}
	g := s.groups[dst]
	item.group = dst
	debug.Log(nil, "submit", "worker %d -> group %d", src, dst)

	s.pending.AddAcqRel(1)

	n := int(g.count)
	for i := 0; i < n; i++ {
		w := s.workers[g.start+WorkerID(i)]
		if w.wakeStatus.CompareAndSwapAcqRel(0, 1) {
			w.localWork = item
			w.localPending = true
			if s.statsEnabled {
				w.stats.localHits.AddAcqRel(1)
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
			return nil
		}
	}

	var sw spin.Wait
	for {
		off := int(g.pushOffset.AddAcqRel(1)-1) % n
		for i := 0; i < n; i++ {
			idx := (off + i) % n
			if g.queues[idx].Enqueue(item) == nil {
				s.wake(s.workers[g.start+WorkerID(idx)])
				return nil
			}
		}
		if s.statsEnabled {
			s.workers[src].stats.queueMisses.AddAcqRel(1)
		}
		sw.Once()
	}
}

// EndExecution drains every queue and inbox, waking workers as needed,
// then signals stop and waits for every worker's run loop to exit
// (including worker 0's, which unblocks BeginExecution on whatever
// goroutine called it).
//
// Must be called from a different goroutine than BeginExecution's caller:
// worker 0's run loop, and therefore BeginExecution itself, does not
// return until EndExecution has run to completion.
func (s *Scheduler) EndExecution() {
	for _, g := range s.groups {
		for _, q := range g.queues {
			q.Drain()
		}
	}

	var sw spin.Wait
	for s.pending.LoadRelaxed() > 0 {
		s.wakeAll()
		sw.Once()
	}

	s.stop.StoreRelease(true)
	s.wakeAll()

	for _, w := range s.workers {
		var sw2 spin.Wait
		for !w.quitting.LoadAcquire() {
			s.wake(w)
			sw2.Once()
		}
	}
}

func (s *Scheduler) wakeAll() {
	for _, w := range s.workers {
		s.wake(w)
	}
}
