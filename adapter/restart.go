package adapter

// RestartObserver is notified whenever the server bumps its generation
// counter, i.e. on every start (fresh or crash-recovery). It replaces
// the teacher's HotReloadAdapter (ReloadPlugin(pluginID)) with the one
// "reload" event this domain has: a new server generation invalidating
// every client's cached connection (spec.md §4.5).
type RestartObserver interface {
	OnGeneration(gen uint64)
}

// LogRestartObserver logs each generation bump through a func, letting
// callers plug in any logger without adapter depending on obslog.
type LogRestartObserver struct {
	Log func(format string, args ...interface{})
}

func (o *LogRestartObserver) OnGeneration(gen uint64) {
	if o.Log != nil {
		o.Log("server generation is now %d", gen)
	}
}
