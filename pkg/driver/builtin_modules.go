package driver

import (
	"jscore/pkg/vm"
)

// HostModule is the specifier of the module describing the session.
const HostModule = "jscore:host"

func registerBuiltinModules(s *Session) {
	s.DeclareModule(HostModule, func(m *ModuleBuilder) { hostModule(s, m) })
}

// hostModule exposes the session limits and a few host services.
func hostModule(s *Session, m *ModuleBuilder) {
	m.Const("version", Version)
	m.Const("strict", s.cfg.Realm.Strict)

	m.Namespace("limits", func(ns *NamespaceBuilder) {
		ns.Const("maxJobRounds", s.cfg.Jobs.MaxRounds)
		ns.Const("maxByteLength", s.cfg.Memory.MaxByteLength)
	})

	m.Function("realms", func() int {
		return s.vm.Realms()
	})

	m.Function("pendingJobs", func() int {
		return s.vm.PendingJobs()
	})

	// log writes through the session logger at info level.
	m.Function("log", func(msg string, fields ...vm.Value) {
		ev := s.logger.Info().Str("source", HostModule)
		if len(fields) > 0 {
			strs := make([]string, len(fields))
			for i, f := range fields {
				strs[i] = f.String()
			}
			ev = ev.Strs("args", strs)
		}
		ev.Msg(msg)
	})
}
