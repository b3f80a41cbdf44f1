package sched

import "sync"

// Traits tunes how ParallelFor splits a range into chunks.
type Traits struct {
	// BatchesPerWorker targets roughly this many chunks per worker in
	// the group, when FixedBatchSize is unset. Defaults to 1.
	BatchesPerWorker int

	// FixedBatchSize, if > 0, overrides BatchesPerWorker: every chunk
	// (but possibly the last) has exactly this many elements.
	FixedBatchSize int

	// ParallelExecutionThreshold: ranges no larger than this run
	// entirely inline, skipping submission altogether.
	ParallelExecutionThreshold int
}

// ParallelFor splits [begin, end) into chunks and runs fn over each chunk
// on group, submitted from self. chunks-1 chunks are submitted to the
// group; the calling goroutine runs the last chunk itself and then waits
// for the submitted ones to finish.
//
// Adapted in idiom from janpfeifer-go-highway's workerpool.ParallelFor:
// same chunk-count math and "caller runs the tail synchronously" shape,
// generalized from a flat goroutine pool to submission against a specific
// scheduler workgroup, and with its sync.WaitGroup used as a latch sized
// chunks-1 so the count matches exactly the work submitted
// (not the full chunk count, since the caller's own chunk never goes
// through the latch).
func ParallelFor(s *Scheduler, self WorkerID, group GroupID, begin, end int, traits Traits, fn func(*WorkerContext, int, int)) {
	size := end - begin
	if size <= 0 {
		return
	}

	workerCount := 1
	if int(group) >= 0 && int(group) < len(s.groups) {
		if n := int(s.groups[group].count); n > 0 {
			workerCount = n
		}
	}

	chunkSize := traits.FixedBatchSize
	if chunkSize <= 0 {
		batchesPerWorker := traits.BatchesPerWorker
		if batchesPerWorker <= 0 {
			batchesPerWorker = 1
		}
		denom := batchesPerWorker * workerCount
		if denom <= 0 {
			denom = 1
		}
		chunkSize = (size + denom - 1) / denom
	}
	if chunkSize <= 0 {
		chunkSize = size
	}

	chunks := (size + chunkSize - 1) / chunkSize

	if size <= traits.ParallelExecutionThreshold || chunks <= 1 {
		fn(s.contextFor(s.workers[self], group), begin, end)
		return
	}

	var latch sync.WaitGroup
	latch.Add(chunks - 1)

	cur := begin
	for i := 0; i < chunks-1; i++ {
		chunkBegin := cur
		chunkEnd := chunkBegin + chunkSize
		if chunkEnd > end {
			chunkEnd = end
		}
		cur = chunkEnd

		item := NewWorkItem(group, func(ctx *WorkerContext, span [2]int) {
			fn(ctx, span[0], span[1])
			latch.Done()
		}, [2]int{chunkBegin, chunkEnd})

		_ = s.SubmitGroup(self, group, item)
	}

	fn(s.contextFor(s.workers[self], group), cur, end)
	latch.Wait()
}
