package sched

import "errors"

// ErrNoWorkers is returned by BeginExecution when the configuration
// defines no workgroups, and therefore no workers to spawn.
var ErrNoWorkers = errors.New("sched: no workers configured")

// ErrUnknownGroup is returned by SubmitGroup for a GroupID that was never
// configured. WorkgroupByName reports an unknown name with ok == false
// instead.
var ErrUnknownGroup = errors.New("sched: unknown workgroup")
